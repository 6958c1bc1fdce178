package utils

import (
	"time"
)

// HTTP header names
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAPIKey        = "X-API-Key"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderRealIP        = "X-Real-IP"
	HeaderAuthorization = "Authorization"
)

// Link management constants
const (
	// StatsClickWindow caps how many recent clicks feed the statistics view
	StatsClickWindow = 1000

	// ExportClickLimit caps the rows written to a click export
	ExportClickLimit = 50000

	// DefaultListLimit is the page size for link listings
	DefaultListLimit = 100

	// APIKeyPrefixLength is the length of the public lookup part of an API key
	APIKeyPrefixLength = 12

	// DailyBucketLayout formats the day keys of the click histogram
	DailyBucketLayout = "2006-01-02"

	// WorkspaceTimelineDays is the default span of the workspace click timeline
	WorkspaceTimelineDays = 7

	// WorkspaceTopBuckets caps each categorical breakdown of workspace stats
	WorkspaceTopBuckets = 10

	// DefaultQRCodeSize is the edge length in pixels of a link QR code
	DefaultQRCodeSize = 256

	// HealthCacheTTL is how long the health endpoint response is cached
	HealthCacheTTL = 10 * time.Second
)
