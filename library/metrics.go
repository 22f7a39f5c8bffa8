package library

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lending activity. A nil *Metrics records nothing.
type Metrics struct {
	LoansIssued     prometheus.Counter
	LoansReturned   prometheus.Counter
	IssueRejected   *prometheus.CounterVec
	FinesCollected  prometheus.Counter
	PersistFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoansIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "loans_issued_total",
			Help:      "Loans issued.",
		}),
		LoansReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "loans_returned_total",
			Help:      "Loans returned.",
		}),
		IssueRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "issue_rejected_total",
			Help:      "Issue attempts rejected, by reason.",
		}, []string{"reason"}),
		FinesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "fines_collected",
			Help:      "Sum of fines frozen at return, in currency units.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed, by collection.",
		}, []string{"collection"}),
	}
	reg.MustRegister(m.LoansIssued, m.LoansReturned, m.IssueRejected, m.FinesCollected, m.PersistFailures)
	return m
}

func (m *Metrics) issued() {
	if m != nil {
		m.LoansIssued.Inc()
	}
}

func (m *Metrics) returned(fine Money) {
	if m != nil {
		m.LoansReturned.Inc()
		m.FinesCollected.Add(float64(fine) / 100)
	}
}

func (m *Metrics) rejected(reason string) {
	if m != nil {
		m.IssueRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) persistFailed(collection string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(collection).Inc()
	}
}

// Option configures a Catalog, Directory, Ledger or Operators.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *Metrics
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, op := range opts {
		op(&o)
	}
	return o
}

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics records activity into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}
