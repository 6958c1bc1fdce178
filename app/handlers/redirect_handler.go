package handlers

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// RedirectHandlerInterface defines the public short code endpoints
type RedirectHandlerInterface interface {
	Redirect(c fiber.Ctx) error
	Interstitial(c fiber.Ctx) error
}

type RedirectHandler struct {
	flow    businessflow.RedirectFlow
	homeURL string
	delay   time.Duration
	timeout time.Duration
}

func NewRedirectHandler(flow businessflow.RedirectFlow, cfg config.ShortenerConfig) RedirectHandlerInterface {
	home := cfg.HomeURL
	if home == "" {
		home = "/"
	}
	return &RedirectHandler{
		flow:    flow,
		homeURL: home,
		delay:   cfg.InterstitialDelay,
		timeout: cfg.RedirectTimeout,
	}
}

// Redirect resolves a short code and sends the visitor on
// @Summary Follow Short Link
// @Description Redirects to the destination, or to the interstitial page for links owned by free or anonymous users. Unknown codes go to the home page.
// @Tags Redirect
// @Param shortCode path string true "Short code"
// @Success 302 {string} string "Redirect"
// @Failure 410 {string} string "Link expired"
// @Router /{shortCode} [get]
func (h *RedirectHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("shortCode")
	if code == "" {
		return c.Redirect().Status(fiber.StatusFound).To(h.homeURL)
	}

	ctx, cancel := createRequestContext(c, "/"+code, h.timeout)
	defer cancel()

	visitor := businessflow.VisitorMetadata{
		IPAddress: clientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referer:   c.Get(fiber.HeaderReferer),
		RequestID: requestID(c),
	}

	decision, err := h.flow.Visit(ctx, code, visitor)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"short_code": code,
			"request_id": visitor.RequestID,
		}).Error("redirect resolution failed")
		return c.Redirect().Status(fiber.StatusFound).To(h.homeURL)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	switch decision.Outcome {
	case businessflow.RedirectDirect, businessflow.RedirectInterstitial:
		return c.Redirect().Status(fiber.StatusFound).To(decision.Location)
	case businessflow.RedirectExpired:
		return c.Status(fiber.StatusGone).SendString("This link has expired")
	default:
		return c.Redirect().Status(fiber.StatusFound).To(h.homeURL)
	}
}

var interstitialTemplate = template.Must(template.New("interstitial").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<meta http-equiv="refresh" content="{{.Seconds}};url={{.Target}}">
<title>Redirecting</title>
</head>
<body>
<p>You are being redirected to <a href="{{.Target}}" rel="noopener nofollow">{{.Target}}</a> in {{.Seconds}} seconds.</p>
</body>
</html>
`))

// Interstitial shows a short waiting page before forwarding
// @Summary Redirect Wait Page
// @Description HTML page that forwards to the target after a delay. Only http and https targets are accepted.
// @Tags Redirect
// @Produce html
// @Param target query string true "Destination URL"
// @Success 200 {string} string "HTML page"
// @Success 302 {string} string "Invalid target, redirected home"
// @Router /redirect-wait [get]
func (h *RedirectHandler) Interstitial(c fiber.Ctx) error {
	target, ok := safeTarget(c.Query("target"))
	if !ok {
		return c.Redirect().Status(fiber.StatusFound).To(h.homeURL)
	}

	var b strings.Builder
	err := interstitialTemplate.Execute(&b, struct {
		Target  string
		Seconds int
	}{Target: target, Seconds: int(h.delay.Seconds())})
	if err != nil {
		logrus.WithError(err).Error("failed to render interstitial page")
		return c.Redirect().Status(fiber.StatusFound).To(target)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).SendString(b.String())
}

func safeTarget(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
