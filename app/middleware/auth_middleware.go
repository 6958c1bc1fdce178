// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const (
	actorLocalKey     = "actor"
	requestIDLocalKey = "request_id"
	authLookupTimeout = 5 * time.Second
)

// UserTierReader loads the caller's account to learn its tier.
type UserTierReader interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
}

// APIKeyAuthenticator resolves a presented API key to its owner.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*businessflow.Actor, error)
}

// AuthMiddleware resolves the caller from a bearer JWT or an API key header
type AuthMiddleware struct {
	tokenService services.TokenService
	users        UserTierReader
	apiKeys      APIKeyAuthenticator
	apiKeyHeader string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, users UserTierReader, apiKeys APIKeyAuthenticator, apiKeyHeader string) *AuthMiddleware {
	if apiKeyHeader == "" {
		apiKeyHeader = utils.HeaderAPIKey
	}
	return &AuthMiddleware{
		tokenService: tokenService,
		users:        users,
		apiKeys:      apiKeys,
		apiKeyHeader: apiKeyHeader,
	}
}

// authFailure is a rejected credential together with its response code.
type authFailure struct {
	code    string
	message string
}

func (f *authFailure) Error() string { return f.message }

// Authenticate requires a valid credential
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, err := m.resolve(c)
		if err != nil {
			return unauthorized(c, err)
		}
		if actor == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header or API key is required",
				Error:   dto.ErrorDetail{Code: "MISSING_CREDENTIALS"},
			})
		}
		m.store(c, actor)
		return c.Next()
	}
}

// OptionalAuth attaches the caller when a credential is present. A credential
// that is present but invalid is still rejected.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, err := m.resolve(c)
		if err != nil {
			return unauthorized(c, err)
		}
		if actor != nil {
			m.store(c, actor)
		}
		return c.Next()
	}
}

// resolve returns (nil, nil) when the request carries no credential.
func (m *AuthMiddleware) resolve(c fiber.Ctx) (*businessflow.Actor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), authLookupTimeout)
	defer cancel()

	if rawKey := strings.TrimSpace(c.Get(m.apiKeyHeader)); rawKey != "" {
		if m.apiKeys == nil {
			return nil, &authFailure{code: "API_KEY_INVALID", message: "Invalid API key"}
		}
		actor, err := m.apiKeys.Authenticate(ctx, rawKey)
		if err != nil {
			if businessflow.IsInvalidAPIKey(err) {
				return nil, &authFailure{code: "API_KEY_INVALID", message: "Invalid API key"}
			}
			logrus.WithError(err).Error("api key authentication failed")
			return nil, &authFailure{code: "AUTHENTICATION_FAILED", message: "Authentication failed"}
		}
		return actor, nil
	}

	authHeader := c.Get(utils.HeaderAuthorization)
	if authHeader == "" {
		return nil, nil
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, &authFailure{code: "INVALID_AUTHORIZATION_FORMAT", message: "Invalid authorization header format. Expected 'Bearer <token>'"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return nil, &authFailure{code: "MISSING_ACCESS_TOKEN", message: "Access token is required"}
	}

	claims, err := m.tokenService.ValidateToken(token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			return nil, &authFailure{code: "TOKEN_EXPIRED", message: "Access token has expired"}
		case errors.Is(err, services.ErrTokenInvalid):
			return nil, &authFailure{code: "TOKEN_INVALID", message: "Invalid access token"}
		default:
			return nil, &authFailure{code: "TOKEN_VALIDATION_FAILED", message: "Token validation failed"}
		}
	}
	if claims.TokenType != services.TokenTypeAccess {
		return nil, &authFailure{code: "TOKEN_INVALID", message: "Invalid access token"}
	}

	user, err := m.users.ByID(ctx, claims.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user for token")
		return nil, &authFailure{code: "AUTHENTICATION_FAILED", message: "Authentication failed"}
	}
	if user == nil {
		return nil, &authFailure{code: "USER_NOT_FOUND", message: "User not found"}
	}
	return &businessflow.Actor{UserID: user.ID, Tier: user.Tier}, nil
}

func (m *AuthMiddleware) store(c fiber.Ctx, actor *businessflow.Actor) {
	c.Locals(actorLocalKey, actor)
	if requestID := c.Get(utils.HeaderRequestID); requestID != "" {
		c.Locals(requestIDLocalKey, requestID)
	}
}

func unauthorized(c fiber.Ctx, err error) error {
	var f *authFailure
	if !errors.As(err, &f) {
		f = &authFailure{code: "AUTHENTICATION_FAILED", message: "Authentication failed"}
	}
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: f.message,
		Error:   dto.ErrorDetail{Code: f.code},
	})
}

// GetActorFromContext returns the authenticated caller, or nil for anonymous requests
func GetActorFromContext(c fiber.Ctx) *businessflow.Actor {
	actor, _ := c.Locals(actorLocalKey).(*businessflow.Actor)
	return actor
}
