package businessflow

import (
	"context"
	"net/url"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

type RedirectOutcome string

const (
	RedirectNotFound     RedirectOutcome = "NOT_FOUND"
	RedirectExpired      RedirectOutcome = "EXPIRED"
	RedirectDirect       RedirectOutcome = "DIRECT"
	RedirectInterstitial RedirectOutcome = "INTERSTITIAL"
)

// RedirectDecision tells the HTTP layer what to send back for a short code.
// Destination is the normalized long URL; Location is where the visitor
// is actually sent (the destination, or the interstitial page).
type RedirectDecision struct {
	Outcome     RedirectOutcome
	Destination string
	Location    string
	LinkID      uint
	ClickID     uint
}

// IsRedirect reports whether the visitor gets a 3xx response.
func (d *RedirectDecision) IsRedirect() bool {
	return d.Outcome == RedirectDirect || d.Outcome == RedirectInterstitial
}

// RedirectFlow resolves short codes for public visitors.
// Public flow, no authentication required
type RedirectFlow interface {
	// Resolve classifies a code without side effects.
	Resolve(ctx context.Context, code string) (*RedirectDecision, error)
	// Visit resolves the code, records the click and schedules enrichment.
	Visit(ctx context.Context, code string, visitor VisitorMetadata) (*RedirectDecision, error)
}

type RedirectFlowImpl struct {
	links            repository.LinkTargetReader
	recorder         ClickRecorder
	dispatcher       EnrichmentDispatcher
	interstitialPath string
	now              func() time.Time
}

func NewRedirectFlow(
	links repository.LinkTargetReader,
	recorder ClickRecorder,
	dispatcher EnrichmentDispatcher,
	interstitialPath string,
) RedirectFlow {
	return &RedirectFlowImpl{
		links:            links,
		recorder:         recorder,
		dispatcher:       dispatcher,
		interstitialPath: interstitialPath,
		now:              utils.UTCNow,
	}
}

func (f *RedirectFlowImpl) Resolve(ctx context.Context, code string) (*RedirectDecision, error) {
	target, err := f.links.TargetByShortCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if target == nil {
		return &RedirectDecision{Outcome: RedirectNotFound}, nil
	}

	decision := &RedirectDecision{LinkID: target.LinkID}
	if target.IsExpired(f.now()) {
		decision.Outcome = RedirectExpired
		return decision, nil
	}

	decision.Destination = NormalizeURL(target.LongURL)
	if RequiresInterstitial(target) {
		decision.Outcome = RedirectInterstitial
		decision.Location = f.interstitialPath + "?target=" + url.QueryEscape(decision.Destination)
	} else {
		decision.Outcome = RedirectDirect
		decision.Location = decision.Destination
	}
	return decision, nil
}

func (f *RedirectFlowImpl) Visit(ctx context.Context, code string, visitor VisitorMetadata) (*RedirectDecision, error) {
	decision, err := f.Resolve(ctx, code)
	if err != nil {
		redirectOutcomes.WithLabelValues("ERROR").Inc()
		return nil, err
	}
	redirectOutcomes.WithLabelValues(string(decision.Outcome)).Inc()

	if !decision.IsRedirect() {
		return decision, nil
	}

	clickID, err := f.recorder.Record(ctx, decision.LinkID, visitor)
	if err != nil {
		// Analytics loss is acceptable; the visitor still gets redirected.
		logrus.WithError(err).WithFields(logrus.Fields{
			"short_code": code,
			"link_id":    decision.LinkID,
			"request_id": visitor.RequestID,
		}).Warn("click recording incomplete")
	}
	if clickID == 0 {
		return decision, nil
	}

	decision.ClickID = clickID
	if f.dispatcher != nil {
		f.dispatcher.Dispatch(EnrichmentJob{
			ClickID:   clickID,
			IPAddress: visitor.IPAddress,
			UserAgent: visitor.UserAgent,
		})
	}
	return decision, nil
}

// RequiresInterstitial is true for links with no team whose owner is absent
// or on the FREE tier.
func RequiresInterstitial(target *models.LinkTarget) bool {
	if target.TeamID != nil {
		return false
	}
	if target.UserID == nil || target.OwnerTier == nil {
		return true
	}
	return *target.OwnerTier == models.TierFree
}
