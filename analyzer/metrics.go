package analyzer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/viant/tracegraph/inspector/document"
)

// Failure reasons reported by the failed files counter
const (
	ReasonUnsupported = "unsupported"
	ReasonMalformed   = "malformed"
	ReasonRead        = "read"
)

// Metrics counts pipeline outcomes
type Metrics struct {
	filesParsed         *prometheus.CounterVec
	filesFailed         *prometheus.CounterVec
	dependenciesDropped prometheus.Counter
}

// NewMetrics registers the pipeline counters; a nil registerer uses a private registry
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &Metrics{
		filesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracegraph_files_parsed_total",
			Help: "Total source files parsed by format",
		}, []string{"format"}),
		filesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracegraph_files_failed_total",
			Help: "Total source files skipped by reason",
		}, []string{"reason"}),
		dependenciesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracegraph_dependencies_dropped_total",
			Help: "Total dependencies whose ends could not be resolved",
		}),
	}
}

func (m *Metrics) parsed(format document.Format) {
	m.filesParsed.WithLabelValues(string(format)).Inc()
}

func (m *Metrics) failed(err error) {
	m.filesFailed.WithLabelValues(reasonOf(err)).Inc()
}

func (m *Metrics) dropped(count int) {
	if count > 0 {
		m.dependenciesDropped.Add(float64(count))
	}
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		return ReasonUnsupported
	case errors.Is(err, document.ErrMalformedSource):
		return ReasonMalformed
	}
	return ReasonRead
}
