package inspector

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/tracegraph/inspector/cobol"
	"github.com/viant/tracegraph/inspector/csvmap"
	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/excel"
	"github.com/viant/tracegraph/inspector/jcl"
	"github.com/viant/tracegraph/inspector/jsonconf"
	"github.com/viant/tracegraph/inspector/ssis"
)

// Inspector converts one source file into a document
type Inspector interface {
	// Format returns the document format produced by the inspector
	Format() document.Format

	// Extensions returns the lower-case file extensions the inspector claims
	Extensions() []string

	// CanInspect reports whether the file looks like something the inspector handles
	CanInspect(filename string, src []byte) bool

	// InspectSource parses source content and extracts a document
	InspectSource(filename string, src []byte) (*document.Document, error)
}

// Factory dispatches files to inspectors by extension
type Factory struct {
	config     *document.Config
	inspectors []Inspector
	fs         afs.Service
	logger     *slog.Logger
}

// FactoryOption customizes a factory
type FactoryOption func(f *Factory)

// WithInspectors replaces the default inspector list; order decides precedence
func WithInspectors(inspectors ...Inspector) FactoryOption {
	return func(f *Factory) {
		f.inspectors = inspectors
	}
}

// WithFileSystem sets the storage service used to read files
func WithFileSystem(fs afs.Service) FactoryOption {
	return func(f *Factory) {
		f.fs = fs
	}
}

// WithLogger sets the factory logger
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new inspector factory with the given config
func NewFactory(config *document.Config, options ...FactoryOption) *Factory {
	if config == nil {
		config = document.DefaultConfig()
	}
	f := &Factory{
		config: config,
		fs:     afs.New(),
		logger: slog.Default(),
	}
	f.inspectors = []Inspector{
		cobol.NewInspector(config),
		jcl.NewInspector(config),
		ssis.NewInspector(config),
		jsonconf.NewInspector(config),
		csvmap.NewInspector(config),
		excel.NewInspector(config),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// GetInspector returns the first inspector claiming the file extension
func (f *Factory) GetInspector(filename string) (Inspector, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, document.Unsupported(filename)
	}
	for _, candidate := range f.inspectors {
		for _, supported := range candidate.Extensions() {
			if supported == ext {
				return candidate, nil
			}
		}
	}
	return nil, document.Unsupported(filename)
}

// SupportedFormats lists each format with its extensions
func (f *Factory) SupportedFormats() map[document.Format][]string {
	result := make(map[document.Format][]string, len(f.inspectors))
	for _, candidate := range f.inspectors {
		result[candidate.Format()] = append(result[candidate.Format()], candidate.Extensions()...)
	}
	return result
}

// InspectSource inspects already loaded content
func (f *Factory) InspectSource(filename string, src []byte) (*document.Document, error) {
	inspector, err := f.GetInspector(filename)
	if err != nil {
		return nil, err
	}
	if !inspector.CanInspect(filename, src) {
		return nil, document.Unsupported(filename)
	}
	doc, err := inspector.InspectSource(filename, src)
	if err != nil {
		return nil, err
	}
	if doc.Metadata.FilePath == "" {
		doc.Metadata.FilePath = filename
	}
	doc.Metadata.Fingerprint = document.Fingerprint(src)
	f.logger.Debug("inspected file",
		slog.String("path", filename),
		slog.String("format", string(doc.Metadata.Format)),
		slog.Int("components", len(doc.Components)),
		slog.Int("dataSources", len(doc.DataSources)),
		slog.Int("parameters", len(doc.Parameters)),
		slog.Int("dataEntities", len(doc.DataEntities)),
		slog.Int("dependencies", len(doc.Dependencies)))
	return doc, nil
}

// InspectFile gets the appropriate inspector and inspects the file
func (f *Factory) InspectFile(ctx context.Context, URL string) (*document.Document, error) {
	if _, err := f.GetInspector(URL); err != nil {
		return nil, err
	}
	src, err := f.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, err
	}
	return f.InspectSource(URL, src)
}
