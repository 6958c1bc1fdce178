// Package scheduler runs background work that must not hold up request handling.
package scheduler

import (
	"context"
	"sync"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	enrichmentQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "susanoo_enrichment_queue_depth",
		Help: "Enrichment jobs waiting for a worker",
	})
	enrichmentDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "susanoo_enrichment_jobs_dropped_total",
		Help: "Enrichment jobs rejected because the queue was full or stopped",
	})
)

// EnrichmentWorker is a bounded worker pool for click enrichment.
// Jobs are processed with their own timeout, detached from the request that
// produced them.
type EnrichmentWorker struct {
	enricher     businessflow.ClickEnricher
	workers      int
	jobTimeout   time.Duration
	drainTimeout time.Duration

	queue   chan businessflow.EnrichmentJob
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewEnrichmentWorker(enricher businessflow.ClickEnricher, cfg config.EnrichmentConfig) *EnrichmentWorker {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &EnrichmentWorker{
		enricher:     enricher,
		workers:      workers,
		jobTimeout:   cfg.JobTimeout,
		drainTimeout: cfg.DrainTimeout,
		queue:        make(chan businessflow.EnrichmentJob, size),
	}
}

// Dispatch enqueues a job without blocking. A full or stopped queue drops it.
func (w *EnrichmentWorker) Dispatch(job businessflow.EnrichmentJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		enrichmentDropped.Inc()
		logrus.WithField("click_id", job.ClickID).Warn("enrichment worker stopped, dropping job")
		return false
	}

	select {
	case w.queue <- job:
		enrichmentQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		enrichmentDropped.Inc()
		logrus.WithField("click_id", job.ClickID).Warn("enrichment queue full, dropping job")
		return false
	}
}

// Start launches the workers and returns a stop function. Stop refuses new
// jobs, lets workers drain the queue for up to the drain timeout and then
// cancels whatever is still running.
func (w *EnrichmentWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i + 1)
	}
	logrus.WithField("workers", w.workers).Info("enrichment worker started")

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.stopped = true
			close(w.queue)
			w.mu.Unlock()

			done := make(chan struct{})
			go func() {
				w.wg.Wait()
				close(done)
			}()

			var timeout <-chan time.Time
			if w.drainTimeout > 0 {
				timer := time.NewTimer(w.drainTimeout)
				defer timer.Stop()
				timeout = timer.C
			}

			select {
			case <-done:
			case <-timeout:
				logrus.WithField("pending", len(w.queue)).Warn("enrichment drain timed out, cancelling workers")
				cancel()
				<-done
			}
			cancel()
			logrus.Info("enrichment worker stopped")
		})
	}
}

func (w *EnrichmentWorker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			enrichmentQueueDepth.Set(float64(len(w.queue)))
			w.process(ctx, id, job)
		}
	}
}

// process isolates one job: a panic or timeout affects only this click.
func (w *EnrichmentWorker) process(parent context.Context, id int, job businessflow.EnrichmentJob) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"worker":   id,
				"click_id": job.ClickID,
				"panic":    r,
			}).Error("enrichment job panicked")
		}
	}()

	ctx := parent
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, w.jobTimeout)
		defer cancel()
	}
	w.enricher.Enrich(ctx, job)
}
