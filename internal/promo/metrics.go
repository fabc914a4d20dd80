package promo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_runs_total",
		Help: "Promotion runs by outcome",
	}, []string{"result"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promo_run_duration_seconds",
		Help:    "Duration of a full promotion run",
		Buckets: prometheus.DefBuckets,
	})
	candidatesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_candidates_total",
		Help: "Customers selected as promotion candidates",
	})
	vouchersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_vouchers_issued_total",
		Help: "Vouchers created for promotion candidates",
	})
	emailsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_emails_published_total",
		Help: "Promotional emails handed to the delivery topic",
	})
	sendsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_sends_skipped_total",
		Help: "Sends skipped because the template was not usable",
	})
	customersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_customers_failed_total",
		Help: "Candidates skipped after a processing error",
	})
)
