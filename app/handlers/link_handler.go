package handlers

import (
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/middleware"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// LinkHandlerInterface defines the link management endpoints
type LinkHandlerInterface interface {
	CreateLink(c fiber.Ctx) error
	ListLinks(c fiber.Ctx) error
	DeleteLink(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
	ExportClicks(c fiber.Ctx) error
	GetQRCode(c fiber.Ctx) error
	GetWorkspaceStats(c fiber.Ctx) error
}

type LinkHandler struct {
	links     businessflow.LinkFlow
	stats     businessflow.LinkStatsFlow
	workspace businessflow.WorkspaceStatsFlow
	validator *validator.Validate
	timeout   time.Duration
}

func NewLinkHandler(links businessflow.LinkFlow, stats businessflow.LinkStatsFlow, workspace businessflow.WorkspaceStatsFlow, timeout time.Duration) LinkHandlerInterface {
	return &LinkHandler{
		links:     links,
		stats:     stats,
		workspace: workspace,
		validator: validator.New(),
		timeout:   timeout,
	}
}

// CreateLink creates a short link
// @Summary Create Short Link
// @Description Create a short link. Anonymous callers are allowed; custom slugs need a paid plan or a team link.
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param request body dto.CreateLinkRequest true "Link payload"
// @Success 201 {object} dto.APIResponse{data=dto.LinkResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Not allowed"
// @Failure 409 {object} dto.APIResponse "Short code taken"
// @Failure 500 {object} dto.APIResponse "Creation failed"
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c fiber.Ctx) error {
	var req dto.CreateLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/links", h.timeout)
	defer cancel()

	res, err := h.links.CreateLink(ctx, middleware.GetActorFromContext(c), &req)
	if err != nil {
		return h.linkError(c, err, "Create link failed", "LINK_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Link created", res)
}

// ListLinks lists the caller's personal links or a team's links
// @Summary List Links
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param team_id query int false "Team ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListLinksResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not a team member"
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c fiber.Ctx) error {
	var req dto.ListLinksRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/links", h.timeout)
	defer cancel()

	res, err := h.links.ListLinks(ctx, middleware.GetActorFromContext(c), &req)
	if err != nil {
		return h.linkError(c, err, "List links failed", "LINK_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Links retrieved", res)
}

// DeleteLink deletes a link and its clicks
// @Summary Delete Link
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param shortCode path string true "Short code"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse "Not allowed"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{shortCode} [delete]
func (h *LinkHandler) DeleteLink(c fiber.Ctx) error {
	code := c.Params("shortCode")
	ctx, cancel := createRequestContext(c, "/api/v1/links/"+code, h.timeout)
	defer cancel()

	if err := h.links.DeleteLink(ctx, middleware.GetActorFromContext(c), code); err != nil {
		return h.linkError(c, err, "Delete link failed", "LINK_DELETE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Link deleted", nil)
}

// GetStats returns click statistics for a link
// @Summary Link Statistics
// @Description Aggregates the most recent clicks by country, referer, device, browser, OS and day
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param shortCode path string true "Short code"
// @Success 200 {object} dto.APIResponse{data=dto.LinkStatsResponse}
// @Failure 403 {object} dto.APIResponse "Not allowed"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{shortCode}/stats [get]
func (h *LinkHandler) GetStats(c fiber.Ctx) error {
	code := c.Params("shortCode")
	ctx, cancel := createRequestContext(c, "/api/v1/links/"+code+"/stats", h.timeout)
	defer cancel()

	res, err := h.stats.GetStats(ctx, middleware.GetActorFromContext(c), code)
	if err != nil {
		return h.linkError(c, err, "Get link stats failed", "LINK_STATS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Link stats retrieved", res)
}

// ExportClicks downloads the clicks of a link as an Excel workbook
// @Summary Export Clicks
// @Tags Links
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param shortCode path string true "Short code"
// @Success 200 {file} file
// @Failure 403 {object} dto.APIResponse "Not allowed"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{shortCode}/clicks/export [get]
func (h *LinkHandler) ExportClicks(c fiber.Ctx) error {
	code := c.Params("shortCode")
	ctx, cancel := createRequestContext(c, "/api/v1/links/"+code+"/clicks/export", 2*h.timeout)
	defer cancel()

	filename, data, err := h.stats.ExportClicks(ctx, middleware.GetActorFromContext(c), code)
	if err != nil {
		return h.linkError(c, err, "Export clicks failed", "CLICK_EXPORT_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// GetQRCode renders the short URL of a link as a PNG QR code
// @Summary Link QR Code
// @Tags Links
// @Produce image/png
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param shortCode path string true "Short code"
// @Param size query int false "Edge length in pixels (128-1024)"
// @Param level query string false "Error correction: low, medium, high, highest"
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 403 {object} dto.APIResponse "Not allowed"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{shortCode}/qr [get]
func (h *LinkHandler) GetQRCode(c fiber.Ctx) error {
	var req dto.QRCodeRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	code := c.Params("shortCode")
	ctx, cancel := createRequestContext(c, "/api/v1/links/"+code+"/qr", h.timeout)
	defer cancel()

	data, err := h.links.QRCode(ctx, middleware.GetActorFromContext(c), code, &req)
	if err != nil {
		return h.linkError(c, err, "Generate QR code failed", "QR_CODE_FAILED")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(data)
}

// GetWorkspaceStats aggregates every link of the caller's personal or team workspace
// @Summary Workspace Statistics
// @Description Link and click totals, a daily click timeline and top breakdowns across a workspace
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param team_id query int false "Team ID"
// @Param days query int false "Timeline length in days (1-90)"
// @Success 200 {object} dto.APIResponse{data=dto.WorkspaceStatsResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not a team member"
// @Router /api/v1/stats [get]
func (h *LinkHandler) GetWorkspaceStats(c fiber.Ctx) error {
	var req dto.WorkspaceStatsRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/stats", h.timeout)
	defer cancel()

	res, err := h.workspace.GetWorkspaceStats(ctx, middleware.GetActorFromContext(c), &req)
	if err != nil {
		return h.linkError(c, err, "Get workspace stats failed", "WORKSPACE_STATS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Workspace stats retrieved", res)
}

func (h *LinkHandler) linkError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsUnauthenticated(err):
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	case businessflow.IsInvalidDestination(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Destination URL is invalid", "INVALID_DESTINATION", nil)
	case businessflow.IsExpiryInPast(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Expiry must be in the future", "EXPIRY_IN_PAST", nil)
	case businessflow.IsInvalidCustomSlug(err):
		return ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_CUSTOM_SLUG", nil)
	case businessflow.IsDuplicateSlug(err):
		return ErrorResponse(c, fiber.StatusConflict, "Short code already taken", "DUPLICATE_SLUG", nil)
	case businessflow.IsCustomSlugNotAllowed(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Custom slugs require a paid plan or a team link", "CUSTOM_SLUG_NOT_ALLOWED", nil)
	case businessflow.IsStatsNotAllowed(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Link statistics require a paid plan", "STATS_NOT_ALLOWED", nil)
	case businessflow.IsTeamNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, "Team not found", "TEAM_NOT_FOUND", nil)
	case businessflow.IsTeamAccessDenied(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Team access denied", "TEAM_ACCESS_DENIED", nil)
	case businessflow.IsLinkNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
	case businessflow.IsLinkAccessDenied(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Link access denied", "LINK_ACCESS_DENIED", nil)
	case businessflow.IsCodeSpaceExhausted(err):
		logrus.WithError(err).Error("short code space exhausted")
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "No short code available", "CODE_SPACE_EXHAUSTED", nil)
	}
	logrus.WithError(err).WithField("request_id", requestID(c)).Error(message)
	return ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
