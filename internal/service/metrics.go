package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters for the upload and delete protocols.
// A nil *Metrics records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	deletes       *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewMetrics creates the document counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_uploads_total",
				Help: "Document uploads by outcome.",
			},
			[]string{"outcome"},
		),
		deletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_deletes_total",
				Help: "Document deletions by outcome.",
			},
			[]string{"outcome"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_compensations_total",
				Help: "Compensating blob deletes after a failed metadata write, by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.deletes, m.compensations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeNotFound    = "not_found"
	outcomeConflict    = "conflict"
	outcomeStorage     = "storage_error"
	outcomePersistence = "persistence_error"

	compensationSucceeded = "succeeded"
	compensationFailed    = "failed"
	compensationSkipped   = "skipped"
)

func (m *Metrics) upload(outcome string) {
	if m != nil {
		m.uploads.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) delete(outcome string) {
	if m != nil {
		m.deletes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) compensation(result string) {
	if m != nil {
		m.compensations.WithLabelValues(result).Inc()
	}
}
