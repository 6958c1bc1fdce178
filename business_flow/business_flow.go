package businessflow

import (
	"net/url"
	"strings"

	"github.com/amirphl/Susanoo/models"
)

const RequestIDKey = "X-Request-ID"

// Actor is the authenticated caller of a management operation.
// A nil *Actor means the request is anonymous.
type Actor struct {
	UserID   uint
	Tier     string
	APIKeyID *uint
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Tier == models.TierAdmin
}

// CanUseCustomSlug reports whether the actor's own plan allows custom slugs.
func (a *Actor) CanUseCustomSlug() bool {
	return a != nil && (models.IsPaidTier(a.Tier) || a.Tier == models.TierAdmin)
}

// CanViewStats reports whether the actor's plan includes link statistics.
func (a *Actor) CanViewStats() bool {
	return a != nil && (models.IsPaidTier(a.Tier) || a.Tier == models.TierAdmin)
}

// VisitorMetadata is what the redirect handler knows about the visitor.
type VisitorMetadata struct {
	IPAddress string
	UserAgent string
	Referer   string
	RequestID string
}

// NormalizeURL prefixes https:// when the destination has no http(s) scheme.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}

// ValidateDestination normalizes raw and checks it parses as an absolute
// http(s) URL with a host.
func ValidateDestination(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrInvalidDestination
	}
	normalized := NormalizeURL(raw)
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return "", ErrInvalidDestination
	}
	return normalized, nil
}
