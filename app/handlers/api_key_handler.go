package handlers

import (
	"strconv"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/middleware"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// APIKeyHandlerInterface defines the API key management endpoints
type APIKeyHandlerInterface interface {
	CreateAPIKey(c fiber.Ctx) error
	ListAPIKeys(c fiber.Ctx) error
	RevokeAPIKey(c fiber.Ctx) error
}

type APIKeyHandler struct {
	flow      businessflow.APIKeyFlow
	validator *validator.Validate
	timeout   time.Duration
}

func NewAPIKeyHandler(flow businessflow.APIKeyFlow, timeout time.Duration) APIKeyHandlerInterface {
	return &APIKeyHandler{flow: flow, validator: validator.New(), timeout: timeout}
}

// CreateAPIKey issues a new API key
// @Summary Create API Key
// @Description The plaintext key is returned once and cannot be retrieved again
// @Tags API Keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAPIKeyRequest true "API key payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateAPIKeyResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/user/api-keys [post]
func (h *APIKeyHandler) CreateAPIKey(c fiber.Ctx) error {
	var req dto.CreateAPIKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/user/api-keys", h.timeout)
	defer cancel()

	res, err := h.flow.CreateAPIKey(ctx, middleware.GetActorFromContext(c), &req)
	if err != nil {
		return h.apiKeyError(c, err, "Create API key failed", "API_KEY_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "API key created", res)
}

// ListAPIKeys lists the caller's active API keys
// @Summary List API Keys
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListAPIKeysResponse}
// @Router /api/v1/user/api-keys [get]
func (h *APIKeyHandler) ListAPIKeys(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/user/api-keys", h.timeout)
	defer cancel()

	res, err := h.flow.ListAPIKeys(ctx, middleware.GetActorFromContext(c))
	if err != nil {
		return h.apiKeyError(c, err, "List API keys failed", "API_KEY_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "API keys retrieved", res)
}

// RevokeAPIKey revokes one of the caller's API keys
// @Summary Revoke API Key
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Param id path int true "API key ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/user/api-keys/{id} [delete]
func (h *APIKeyHandler) RevokeAPIKey(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid API key ID", "INVALID_API_KEY_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/user/api-keys/:id", h.timeout)
	defer cancel()

	if err := h.flow.RevokeAPIKey(ctx, middleware.GetActorFromContext(c), uint(id)); err != nil {
		return h.apiKeyError(c, err, "Revoke API key failed", "API_KEY_REVOKE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "API key revoked", nil)
}

func (h *APIKeyHandler) apiKeyError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsUnauthenticated(err):
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	case businessflow.IsAPIKeyNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, "API key not found", "API_KEY_NOT_FOUND", nil)
	}
	logrus.WithError(err).WithField("request_id", requestID(c)).Error(message)
	return ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
