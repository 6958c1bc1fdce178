package dto

import "time"

// CreateLinkRequest creates a short link. CustomSlug is only honored for paid
// plans and team links.
type CreateLinkRequest struct {
	LongURL    string     `json:"long_url" validate:"required,max=2048"`
	CustomSlug *string    `json:"custom_slug,omitempty" validate:"omitempty,min=1,max=64"`
	Title      *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	TeamID     *uint      `json:"team_id,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse is the public view of a link
type LinkResponse struct {
	ID         uint       `json:"id"`
	ShortCode  string     `json:"short_code"`
	ShortURL   string     `json:"short_url"`
	LongURL    string     `json:"long_url"`
	Title      *string    `json:"title,omitempty"`
	TeamID     *uint      `json:"team_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ClickCount int64      `json:"click_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListLinksRequest selects personal links, or team links when TeamID is set
type ListLinksRequest struct {
	TeamID *uint `query:"team_id" validate:"omitempty,gt=0"`
	Limit  int   `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int   `query:"offset" validate:"omitempty,min=0"`
}

type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
	Total int64          `json:"total"`
}

// CountBucket is one entry of a categorical breakdown
type CountBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// LinkStatsResponse aggregates the most recent clicks of a link
type LinkStatsResponse struct {
	ShortCode     string        `json:"short_code"`
	TotalClicks   int64         `json:"total_clicks"`
	SampledClicks int           `json:"sampled_clicks"`
	LastClickedAt *time.Time    `json:"last_clicked_at,omitempty"`
	Countries     []CountBucket `json:"countries"`
	Referers      []CountBucket `json:"referers"`
	Devices       []CountBucket `json:"devices"`
	Browsers      []CountBucket `json:"browsers"`
	OS            []CountBucket `json:"os"`
	DailyClicks   []CountBucket `json:"daily_clicks"`
}

// QRCodeRequest tunes the rendered QR code
type QRCodeRequest struct {
	Size  int    `query:"size" validate:"omitempty,min=128,max=1024"`
	Level string `query:"level" validate:"omitempty,oneof=low medium high highest"`
}

// WorkspaceStatsRequest selects a team workspace, or personal links when TeamID is unset
type WorkspaceStatsRequest struct {
	TeamID *uint `query:"team_id" validate:"omitempty,gt=0"`
	Days   int   `query:"days" validate:"omitempty,min=1,max=90"`
}

// WorkspaceStatsResponse aggregates every link of a workspace. The breakdowns
// cover the most recent clicks; the timeline covers every click in the window.
type WorkspaceStatsResponse struct {
	TeamID            *uint         `json:"team_id,omitempty"`
	TotalLinks        int64         `json:"total_links"`
	NewLinks          int64         `json:"new_links"`
	TotalClicks       int64         `json:"total_clicks"`
	UniqueVisitors    int           `json:"unique_visitors"`
	PendingEnrichment int64         `json:"pending_enrichment"`
	SampledClicks     int           `json:"sampled_clicks"`
	Timeline          []CountBucket `json:"timeline"`
	Countries         []CountBucket `json:"countries"`
	Cities            []CountBucket `json:"cities"`
	Referers          []CountBucket `json:"referers"`
	Devices           []CountBucket `json:"devices"`
	Browsers          []CountBucket `json:"browsers"`
	OS                []CountBucket `json:"os"`
}
