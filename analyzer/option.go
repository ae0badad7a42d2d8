package analyzer

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/tracegraph/analyzer/linage"
	"github.com/viant/tracegraph/inspector"
)

type Option func(*Analyzer)

// WithLogger sets the logger shared by the pipeline, factory and builder
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithRegisterer registers pipeline metrics with the registerer instead of a private registry
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(a *Analyzer) {
		a.registerer = registerer
	}
}

// WithGraphExporter registers a GraphExporter to send the graph after analysis.
func WithGraphExporter(exporter GraphExporter) Option {
	return func(a *Analyzer) {
		a.graphExporter = exporter
	}
}

// WithFactory replaces the inspector factory
func WithFactory(factory *inspector.Factory) Option {
	return func(a *Analyzer) {
		a.factory = factory
	}
}

// WithFileSystem sets the storage service used to walk and read files
func WithFileSystem(fs afs.Service) Option {
	return func(a *Analyzer) {
		a.fs = fs
	}
}

// WithGraph extends an existing graph instead of a new one
func WithGraph(graph *linage.Graph) Option {
	return func(a *Analyzer) {
		a.graph = graph
	}
}
