package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnricher struct {
	mu      sync.Mutex
	seen    []uint
	panicOn uint
	delay   time.Duration
}

func (e *recordingEnricher) Enrich(ctx context.Context, job businessflow.EnrichmentJob) {
	if job.ClickID == e.panicOn {
		panic("boom")
	}
	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.delay):
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, job.ClickID)
}

func (e *recordingEnricher) ids() []uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint(nil), e.seen...)
}

func testEnrichmentConfig(workers, queue int) config.EnrichmentConfig {
	return config.EnrichmentConfig{
		Workers:      workers,
		QueueSize:    queue,
		JobTimeout:   time.Second,
		DrainTimeout: 2 * time.Second,
	}
}

func TestEnrichmentWorker_ProcessesAllJobsBeforeStopReturns(t *testing.T) {
	enricher := &recordingEnricher{}
	w := NewEnrichmentWorker(enricher, testEnrichmentConfig(4, 100))
	stop := w.Start(context.Background())

	for i := uint(1); i <= 50; i++ {
		require.True(t, w.Dispatch(businessflow.EnrichmentJob{ClickID: i}))
	}
	stop()

	assert.ElementsMatch(t, seq(1, 50), enricher.ids())
}

func TestEnrichmentWorker_DropsWhenQueueFull(t *testing.T) {
	enricher := &recordingEnricher{}
	w := NewEnrichmentWorker(enricher, testEnrichmentConfig(1, 1))

	assert.True(t, w.Dispatch(businessflow.EnrichmentJob{ClickID: 1}))
	assert.False(t, w.Dispatch(businessflow.EnrichmentJob{ClickID: 2}))

	stop := w.Start(context.Background())
	stop()
	assert.Equal(t, []uint{1}, enricher.ids())
}

func TestEnrichmentWorker_DispatchAfterStopIsRejected(t *testing.T) {
	w := NewEnrichmentWorker(&recordingEnricher{}, testEnrichmentConfig(1, 10))
	stop := w.Start(context.Background())
	stop()
	stop()

	assert.False(t, w.Dispatch(businessflow.EnrichmentJob{ClickID: 9}))
}

func TestEnrichmentWorker_PanicIsContained(t *testing.T) {
	enricher := &recordingEnricher{panicOn: 2}
	w := NewEnrichmentWorker(enricher, testEnrichmentConfig(1, 10))
	stop := w.Start(context.Background())

	for i := uint(1); i <= 3; i++ {
		w.Dispatch(businessflow.EnrichmentJob{ClickID: i})
	}
	stop()

	assert.ElementsMatch(t, []uint{1, 3}, enricher.ids())
}

func TestEnrichmentWorker_DrainTimeoutCancelsSlowJobs(t *testing.T) {
	enricher := &recordingEnricher{delay: 5 * time.Second}
	cfg := testEnrichmentConfig(1, 10)
	cfg.JobTimeout = 0
	cfg.DrainTimeout = 100 * time.Millisecond
	w := NewEnrichmentWorker(enricher, cfg)
	stop := w.Start(context.Background())
	w.Dispatch(businessflow.EnrichmentJob{ClickID: 1})

	start := time.Now()
	stop()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, enricher.ids())
}

func seq(from, to uint) []uint {
	out := make([]uint, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
