package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/tracegraph/analyzer/linage"
	"github.com/viant/tracegraph/inspector"
	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/repository"
	"golang.org/x/sync/errgroup"
)

// Analyzer discovers source files under a root, parses them concurrently and appends the
// resulting documents to one lineage graph in discovery order
type Analyzer struct {
	config        *Config
	fs            afs.Service
	factory       *inspector.Factory
	scanner       *repository.Scanner
	detector      *repository.Detector
	graph         *linage.Graph
	builder       *linage.Builder
	metrics       *Metrics
	registerer    prometheus.Registerer
	graphExporter GraphExporter
	logger        *slog.Logger
}

// FileError is a file skipped by the pipeline
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// DocumentResult summarizes one document appended to the graph
type DocumentResult struct {
	Path       string
	DocumentID linage.NodeID
	Format     document.Format
	Nodes      int
	Edges      int
	Dropped    int
	Unchanged  bool
}

// Report summarizes an analysis run
type Report struct {
	Repository *repository.Repository
	Documents  []*DocumentResult
	Failures   []*FileError
	Stats      *linage.Stats
	Elapsed    time.Duration
}

// New creates an analyzer for the config
func New(config *Config, options ...Option) (*Analyzer, error) {
	if config == nil {
		return nil, fmt.Errorf("config was nil")
	}
	config.Init()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{
		config:   config,
		fs:       afs.New(),
		detector: repository.New(),
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(a)
	}
	if a.factory == nil {
		a.factory = inspector.NewFactory(config.DocumentConfig(),
			inspector.WithFileSystem(a.fs),
			inspector.WithLogger(a.logger))
	}
	var err error
	if a.scanner, err = repository.NewScanner(config.Include, config.Exclude,
		repository.WithMaxFileSize(config.MaxFileSize),
		repository.WithScannerFileSystem(a.fs)); err != nil {
		return nil, err
	}
	a.builder = linage.NewBuilder(a.graph, linage.WithLogger(a.logger))
	a.graph = a.builder.Graph()
	a.metrics = NewMetrics(a.registerer)
	return a, nil
}

// Graph returns the graph built so far
func (a *Analyzer) Graph() *linage.Graph {
	return a.graph
}

// Query returns a query engine over the graph
func (a *Analyzer) Query() *linage.Query {
	return linage.NewQuery(a.graph)
}

// AnalyzeDir scans the configured root and appends every parsed file to the graph. Files
// that cannot be parsed are reported and skipped; only scan failures and cancellation
// abort the run.
func (a *Analyzer) AnalyzeDir(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{Repository: a.repository()}
	assets, err := a.scanner.Scan(ctx, a.config.Root)
	if err != nil {
		return nil, err
	}
	a.logger.Info("discovered files", slog.String("root", a.config.Root), slog.Int("files", len(assets)))

	err = a.parseInOrder(ctx, assets, func(asset *repository.Asset, doc *document.Document, err error) {
		if err != nil {
			a.skip(report, asset, err)
			return
		}
		addition := a.builder.Add(doc)
		a.metrics.parsed(doc.Metadata.Format)
		a.metrics.dropped(addition.Dropped)
		report.Documents = append(report.Documents, &DocumentResult{
			Path:       asset.RelativePath,
			DocumentID: addition.DocumentID,
			Format:     doc.Metadata.Format,
			Nodes:      addition.Nodes,
			Edges:      addition.Edges,
			Dropped:    addition.Dropped,
			Unchanged:  addition.Unchanged,
		})
	})
	if err != nil {
		return nil, err
	}
	report.Stats = a.Query().Stats()
	report.Elapsed = time.Since(started)
	a.logger.Info("analyzed files",
		slog.Int("documents", len(report.Documents)),
		slog.Int("failures", len(report.Failures)),
		slog.Int("nodes", report.Stats.TotalNodes),
		slog.Int("edges", report.Stats.TotalEdges),
		slog.Int("dropped", report.Stats.DroppedDependencies),
		slog.Duration("elapsed", report.Elapsed))

	if a.graphExporter != nil {
		if err = a.graphExporter.Export(ctx, a.graph.NodeLink()); err != nil {
			return report, fmt.Errorf("failed to export graph: %w", err)
		}
	}
	return report, nil
}

type parsed struct {
	doc *document.Document
	err error
}

// parseInOrder parses assets concurrently and hands each result to add in discovery order.
// At most twice Concurrency documents are held between parsing and add.
func (a *Analyzer) parseInOrder(ctx context.Context, assets []*repository.Asset, add func(asset *repository.Asset, doc *document.Document, err error)) error {
	ready := make([]chan *parsed, len(assets))
	for i := range ready {
		ready[i] = make(chan *parsed, 1)
	}
	window := make(chan struct{}, 2*a.config.Concurrency)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.config.Concurrency)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, asset := range assets {
			select {
			case window <- struct{}{}:
			case <-groupCtx.Done():
				return
			}
			group.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				doc, err := a.factory.InspectFile(groupCtx, asset.URL)
				ready[i] <- &parsed{doc: doc, err: err}
				return nil
			})
		}
	}()

	for i, asset := range assets {
		var result *parsed
		select {
		case result = <-ready[i]:
		case <-groupCtx.Done():
		}
		if result == nil {
			break
		}
		add(asset, result.doc, result.err)
		<-window
	}
	<-dispatched
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (a *Analyzer) skip(report *Report, asset *repository.Asset, err error) {
	report.Failures = append(report.Failures, &FileError{Path: asset.RelativePath, Err: err})
	a.metrics.failed(err)
	a.logger.Warn("skipped file",
		slog.String("path", asset.RelativePath),
		slog.String("reason", reasonOf(err)),
		slog.Any("error", err))
}

// repository identifies the tree the root belongs to; only local roots are detected
func (a *Analyzer) repository() *repository.Repository {
	root := a.config.Root
	if strings.Contains(root, "://") {
		if !strings.HasPrefix(root, "file://") {
			return nil
		}
		root = strings.TrimPrefix(root, "file://")
	}
	repo, err := a.detector.DetectRepository(root)
	if err != nil {
		a.logger.Debug("repository not detected", slog.String("root", a.config.Root), slog.Any("error", err))
		return nil
	}
	return repo
}
