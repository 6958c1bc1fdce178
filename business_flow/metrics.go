package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redirectOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "susanoo_redirects_total",
			Help: "Redirect decisions by outcome",
		},
		[]string{"outcome"},
	)

	clickRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "susanoo_click_record_failures_total",
			Help: "Clicks that could not be fully recorded",
		},
	)

	enrichmentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "susanoo_click_enrichments_total",
			Help: "Click enrichment runs by result",
		},
		[]string{"result"},
	)

	slugLengthEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "susanoo_slug_length_escalations_total",
			Help: "Times the slug generator moved to a longer code length",
		},
	)
)
