package analyzer

import (
	"context"

	"github.com/viant/tracegraph/analyzer/linage"
)

// GraphExporter receives the node-link dump of the graph after analysis (e.g. to load it into a graph store)
type GraphExporter interface {
	Export(ctx context.Context, graph *linage.NodeLink) error
}

// ExporterFunc adapts a function to GraphExporter
type ExporterFunc func(ctx context.Context, graph *linage.NodeLink) error

// Export calls fn
func (fn ExporterFunc) Export(ctx context.Context, graph *linage.NodeLink) error {
	return fn(ctx, graph)
}
