package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	lookupTotal    *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	matchScore     prometheus.Histogram

	messagesTotal  *prometheus.CounterVec
	pendingReplies prometheus.Gauge
	rejectedSends  prometheus.Counter
	discardedTurns prometheus.Counter

	storeOpDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	storeRecovered  *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			lookupTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pasokh_lookup_total",
					Help: "Total query lookups by outcome (match, fallback).",
				},
				[]string{"outcome"},
			),
			lookupDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pasokh_lookup_duration_seconds",
					Help:    "Matcher lookup duration in seconds.",
					Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
				},
			),
			matchScore: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pasokh_match_score",
					Help:    "Score of accepted matches (0 is exact).",
					Buckets: prometheus.LinearBuckets(0, 0.05, 10),
				},
			),
			messagesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pasokh_messages_total",
					Help: "Messages appended to conversations by role.",
				},
				[]string{"role"},
			),
			pendingReplies: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "pasokh_pending_replies",
					Help: "Replies currently waiting on the typing delay.",
				},
			),
			rejectedSends: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pasokh_rejected_sends_total",
					Help: "Sends rejected because a reply was still pending.",
				},
			),
			discardedTurns: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pasokh_discarded_replies_total",
					Help: "Pending replies discarded by a clear.",
				},
			),
			storeOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pasokh_store_op_duration_seconds",
					Help:    "Persistence operation duration by backend and operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"backend", "op"},
			),
			storeErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pasokh_store_errors_total",
					Help: "Persistence errors by backend and operation.",
				},
				[]string{"backend", "op"},
			),
			storeRecovered: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pasokh_store_recovered_total",
					Help: "Corrupt or unreadable persisted entries replaced by defaults, by key.",
				},
				[]string{"key"},
			),
		}

		prometheus.MustRegister(
			m.lookupTotal,
			m.lookupDuration,
			m.matchScore,
			m.messagesTotal,
			m.pendingReplies,
			m.rejectedSends,
			m.discardedTurns,
			m.storeOpDuration,
			m.storeErrors,
			m.storeRecovered,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordLookup(duration time.Duration, matched bool, score float64) {
	m := getMetrics()
	m.lookupDuration.Observe(duration.Seconds())
	if matched {
		m.lookupTotal.WithLabelValues("match").Inc()
		m.matchScore.Observe(score)
		return
	}
	m.lookupTotal.WithLabelValues("fallback").Inc()
}

func RecordMessage(role string) {
	getMetrics().messagesTotal.WithLabelValues(role).Inc()
}

func AddPendingReplies(delta int) {
	getMetrics().pendingReplies.Add(float64(delta))
}

func RecordRejectedSend() {
	getMetrics().rejectedSends.Inc()
}

func RecordDiscardedReply() {
	getMetrics().discardedTurns.Inc()
}

func RecordStoreOp(backend, op string, duration time.Duration, err error) {
	m := getMetrics()
	m.storeOpDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

func RecordStoreRecovered(key string) {
	getMetrics().storeRecovered.WithLabelValues(key).Inc()
}
