package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultClickIP        = "0.0.0.0"
	defaultClickUserAgent = "Unknown"
	defaultClickReferer   = "Direct"
)

// ClickRecorder persists the raw click and bumps the link counter.
type ClickRecorder interface {
	Record(ctx context.Context, linkID uint, visitor VisitorMetadata) (uint, error)
}

// ClickCounter increments a link's click_count atomically.
type ClickCounter interface {
	IncrementClickCount(ctx context.Context, linkID uint) error
}

// ClickWriter inserts click rows.
type ClickWriter interface {
	Save(ctx context.Context, click *models.Click) error
}

type ClickRecorderImpl struct {
	counter ClickCounter
	clicks  ClickWriter
	now     func() time.Time
}

func NewClickRecorder(counter ClickCounter, clicks ClickWriter) ClickRecorder {
	return &ClickRecorderImpl{counter: counter, clicks: clicks, now: utils.UTCNow}
}

// Record runs the counter increment and the click insert concurrently.
// The two writes are independent, so one may succeed while the other fails;
// the returned id is non-zero whenever the click row was written.
func (r *ClickRecorderImpl) Record(ctx context.Context, linkID uint, visitor VisitorMetadata) (uint, error) {
	click := &models.Click{
		LinkID:    linkID,
		ClickedAt: r.now(),
		IPAddress: orDefault(visitor.IPAddress, defaultClickIP),
		UserAgent: orDefault(visitor.UserAgent, defaultClickUserAgent),
		Referer:   orDefault(visitor.Referer, defaultClickReferer),
	}

	log := logrus.WithFields(logrus.Fields{"link_id": linkID, "request_id": visitor.RequestID})

	var g errgroup.Group
	g.Go(func() error {
		if err := r.counter.IncrementClickCount(ctx, linkID); err != nil {
			clickRecordFailures.Inc()
			log.WithError(err).Error("failed to increment click count")
			return NewBusinessError("CLICK_COUNT_FAILED", "Failed to increment click count", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.clicks.Save(ctx, click); err != nil {
			clickRecordFailures.Inc()
			log.WithError(err).Error("failed to insert click")
			return NewBusinessError("CLICK_INSERT_FAILED", "Failed to insert click", err)
		}
		return nil
	})
	err := g.Wait()

	return click.ID, err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
