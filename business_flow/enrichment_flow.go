package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// EnrichmentJob carries the raw click fields enrichment needs, so the worker
// never has to read the click back.
type EnrichmentJob struct {
	ClickID   uint
	IPAddress string
	UserAgent string
}

// EnrichmentDispatcher hands jobs to the background worker.
// Dispatch must not block; it reports whether the job was accepted.
type EnrichmentDispatcher interface {
	Dispatch(job EnrichmentJob) bool
}

// ClickEnricher derives device and location attributes for a recorded click.
// Failures are logged, never returned.
type ClickEnricher interface {
	Enrich(ctx context.Context, job EnrichmentJob)
}

// ClickEnrichmentWriter stores the derived attributes.
type ClickEnrichmentWriter interface {
	UpdateEnrichment(ctx context.Context, clickID uint, e models.ClickEnrichment) error
}

type EnrichmentFlowImpl struct {
	clicks ClickEnrichmentWriter
	geo    services.GeoLocator
	now    func() time.Time
}

func NewEnrichmentFlow(clicks ClickEnrichmentWriter, geo services.GeoLocator) ClickEnricher {
	return &EnrichmentFlowImpl{clicks: clicks, geo: geo, now: utils.UTCNow}
}

// rawEnrichmentData is the side metadata stored in clicks.raw_data.
type rawEnrichmentData struct {
	UserAgent         string `json:"user_agent"`
	DetectedAt        string `json:"detected_at"`
	GeolocationSource string `json:"geolocation_source,omitempty"`
	Organization      string `json:"organization,omitempty"`
	GeolocationError  string `json:"geolocation_error,omitempty"`
	GeolocationSkip   string `json:"geolocation_skipped,omitempty"`
}

func (f *EnrichmentFlowImpl) Enrich(ctx context.Context, job EnrichmentJob) {
	log := logrus.WithFields(logrus.Fields{"click_id": job.ClickID})

	client := services.DetectClient(job.UserAgent)
	enrichment := models.ClickEnrichment{
		DeviceType: client.DeviceType,
		Browser:    client.Browser,
		OS:         client.OS,
	}
	raw := rawEnrichmentData{
		UserAgent:  job.UserAgent,
		DetectedAt: f.now().Format(time.RFC3339),
	}

	switch {
	case !services.IsPublicIP(job.IPAddress):
		raw.GeolocationSkip = "non-public address"
	case f.geo == nil:
		raw.GeolocationError = "geolocation disabled"
	default:
		loc, err := f.geo.Lookup(ctx, job.IPAddress)
		if err != nil {
			log.WithError(err).Warn("geolocation failed for click")
			raw.GeolocationError = err.Error()
			break
		}
		enrichment.Country = nonEmpty(loc.Country)
		enrichment.City = nonEmpty(loc.City)
		enrichment.Region = nonEmpty(loc.Region)
		enrichment.Latitude = loc.Latitude
		enrichment.Longitude = loc.Longitude
		raw.GeolocationSource = loc.Source
		raw.Organization = loc.Organization
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		log.WithError(err).Error("failed to encode click raw data")
		payload = nil
	}
	enrichment.RawData = payload

	if err := f.clicks.UpdateEnrichment(ctx, job.ClickID, enrichment); err != nil {
		enrichmentResults.WithLabelValues("write_failed").Inc()
		log.WithError(err).Error("failed to store click enrichment")
		return
	}

	result := "complete"
	if raw.GeolocationError != "" {
		result = "partial"
	}
	enrichmentResults.WithLabelValues(result).Inc()
	log.WithFields(logrus.Fields{
		"device_type": client.DeviceType,
		"browser":     client.Browser,
		"os":          client.OS,
		"geo_source":  raw.GeolocationSource,
	}).Debug("click enriched")
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return utils.ToPtr(s)
}
