// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultRequestTimeout = 30 * time.Second

func ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code, Details: details},
	})
}

func SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validationFailed renders validator errors as a 400 response.
func validationFailed(c fiber.Ctx, err error) error {
	var messages []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			messages = append(messages, getValidationErrorMessage(e))
		}
	} else {
		messages = append(messages, err.Error())
	}
	return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "url":
		return err.Field() + " must be a valid URL"
	default:
		return err.Field() + " is invalid"
	}
}

// createRequestContext detaches the flow from fiber's pooled context and
// carries the request metadata used in logs.
func createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get(fiber.HeaderUserAgent))
	ctx = context.WithValue(ctx, utils.IPAddressKey, clientIP(c))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id := c.Get(utils.HeaderRequestID); id != "" {
		return id
	}
	return string(c.Response().Header.Peek(utils.HeaderRequestID))
}

// clientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the
// socket address.
func clientIP(c fiber.Ctx) string {
	if ip := utils.FirstForwardedIP(c.Get(utils.HeaderForwardedFor)); ip != "" {
		return ip
	}
	if ip := c.Get(utils.HeaderRealIP); ip != "" {
		return ip
	}
	return c.IP()
}
