package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRedirectFlow struct {
	decision *businessflow.RedirectDecision
	err      error
	visitor  businessflow.VisitorMetadata
	code     string
}

func (s *stubRedirectFlow) Resolve(context.Context, string) (*businessflow.RedirectDecision, error) {
	return s.decision, s.err
}

func (s *stubRedirectFlow) Visit(_ context.Context, code string, v businessflow.VisitorMetadata) (*businessflow.RedirectDecision, error) {
	s.code = code
	s.visitor = v
	return s.decision, s.err
}

func newRedirectApp(flow businessflow.RedirectFlow) *fiber.App {
	h := NewRedirectHandler(flow, config.ShortenerConfig{
		HomeURL:           "https://home.example",
		InterstitialPath:  "/redirect-wait",
		InterstitialDelay: 5 * time.Second,
		RedirectTimeout:   time.Second,
	})
	app := fiber.New()
	app.Get("/redirect-wait", h.Interstitial)
	app.Get("/r/:shortCode", h.Redirect)
	app.Get("/:shortCode", h.Redirect)
	return app
}

func TestRedirectHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		decision *businessflow.RedirectDecision
		err      error
		status   int
		location string
	}{
		{"direct", &businessflow.RedirectDecision{Outcome: businessflow.RedirectDirect, Location: "https://dest.example/a"}, nil, http.StatusFound, "https://dest.example/a"},
		{"interstitial", &businessflow.RedirectDecision{Outcome: businessflow.RedirectInterstitial, Location: "/redirect-wait?target=https%3A%2F%2Fdest.example"}, nil, http.StatusFound, "/redirect-wait?target=https%3A%2F%2Fdest.example"},
		{"not found", &businessflow.RedirectDecision{Outcome: businessflow.RedirectNotFound}, nil, http.StatusFound, "https://home.example"},
		{"expired", &businessflow.RedirectDecision{Outcome: businessflow.RedirectExpired}, nil, http.StatusGone, ""},
		{"lookup error", nil, errors.New("db down"), http.StatusFound, "https://home.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newRedirectApp(&stubRedirectFlow{decision: tt.decision, err: tt.err})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/abc", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestRedirectHandler_PassesVisitorMetadata(t *testing.T) {
	flow := &stubRedirectFlow{decision: &businessflow.RedirectDecision{Outcome: businessflow.RedirectDirect, Location: "https://dest.example"}}
	app := newRedirectApp(flow)

	req := httptest.NewRequest(http.MethodGet, "/r/xyz", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("Referer", "https://news.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	assert.Equal(t, "xyz", flow.code)
	assert.Equal(t, "203.0.113.9", flow.visitor.IPAddress)
	assert.Equal(t, "curl/8.0", flow.visitor.UserAgent)
	assert.Equal(t, "https://news.example", flow.visitor.Referer)
}

func TestRedirectHandler_RealIPFallback(t *testing.T) {
	flow := &stubRedirectFlow{decision: &businessflow.RedirectDecision{Outcome: businessflow.RedirectNotFound}}
	app := newRedirectApp(flow)

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", flow.visitor.IPAddress)
}

func TestRedirectHandler_Interstitial(t *testing.T) {
	app := newRedirectApp(&stubRedirectFlow{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/redirect-wait?target=https%3A%2F%2Fdest.example%2Fpath", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "https://dest.example/path")
	assert.Contains(t, string(body), `content="5;url=`)

	for _, target := range []string{"", "javascript%3Aalert(1)", "ftp%3A%2F%2Fhost%2Ff", "%2Frelative"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/redirect-wait?target="+target, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode, "target %q", target)
		assert.Equal(t, "https://home.example", resp.Header.Get("Location"))
	}
}
