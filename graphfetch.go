package graphfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AnacletoLAB/graphfetch/internal/catalog"
	"github.com/AnacletoLAB/graphfetch/internal/download"
	"github.com/AnacletoLAB/graphfetch/internal/logging"
)

// CacheDirEnv is the environment variable consulted for the default cache
// root when none is configured explicitly.
const CacheDirEnv = "GRAPH_CACHE_DIR"

// DefaultCacheDir is used when neither an option nor CacheDirEnv set a root.
const DefaultCacheDir = "graphs"

// Verbosity controls terminal output during retrieval.
type Verbosity int

const (
	// Silent suppresses all output.
	Silent Verbosity = iota
	// Summary logs one line per downloaded or reused file.
	Summary
	// Progress additionally renders a byte-level progress bar per transfer.
	Progress
)

// GraphHandle is the opaque in-memory graph produced by a GraphBuilder.
// graphfetch never inspects it.
type GraphHandle any

// BuildSource is everything a GraphBuilder needs to construct a graph from
// the resolved cache entries.
type BuildSource struct {
	Name       string
	Collection string
	Version    string
	Directed   bool
	// EdgePath is the primary data file (the first file of the dataset,
	// after extraction when the catalog requests it).
	EdgePath string
	// Paths lists every resolved file in catalog order.
	Paths []string
	// Options are forwarded verbatim; recognized keys are defined by the
	// native engine, not by graphfetch.
	Options map[string]any
}

// GraphBuilder constructs a graph from local files. Implementations wrap the
// native graph engine.
type GraphBuilder interface {
	Build(ctx context.Context, src BuildSource) (GraphHandle, error)
}

// BuilderFunc adapts a function to the GraphBuilder interface.
type BuilderFunc func(ctx context.Context, src BuildSource) (GraphHandle, error)

func (f BuilderFunc) Build(ctx context.Context, src BuildSource) (GraphHandle, error) {
	return f(ctx, src)
}

// FileSpec describes one remote file of a caller-defined dataset.
type FileSpec struct {
	Name    string
	URLs    []string
	SHA256  string
	Extract bool
}

// DatasetSpec is a caller-defined dataset, used with RegisterDataset or
// WithSpec for datasets not present in the built-in catalog.
type DatasetSpec struct {
	Name        string
	Collection  string
	Version     string
	Files       []FileSpec
	Description string
	Citation    string
}

func (s DatasetSpec) internal() *catalog.Spec {
	files := make([]catalog.FileSpec, len(s.Files))
	for i, f := range s.Files {
		files[i] = catalog.FileSpec{Name: f.Name, URLs: f.URLs, SHA256: f.SHA256, Extract: f.Extract}
	}
	return &catalog.Spec{
		Name:        s.Name,
		Collection:  s.Collection,
		Version:     s.Version,
		Files:       files,
		Description: s.Description,
		Citation:    s.Citation,
	}
}

// RegisterDataset adds a dataset to the built-in catalog for the lifetime of
// the process.
func RegisterDataset(spec DatasetSpec) error {
	return catalog.Builtin().Register(spec.internal())
}

// RetrievedGraph resolves one dataset to verified local files and builds a
// graph from them on demand. It is safe for concurrent use.
type RetrievedGraph struct {
	spec             *catalog.Spec
	directed         bool
	verbosity        Verbosity
	cacheRoot        string
	checksumRequired bool
	graphOptions     map[string]any
	builder          GraphBuilder
	httpClient       *http.Client
	retry            *download.RetryPolicy
	attemptTimeout   time.Duration
	parallel         int
	log              *slog.Logger
}

// New resolves a dataset by name and collection and returns a loader for it.
// Returns an error wrapping ErrDatasetUnknown when the dataset, collection or
// requested version is not in the catalog.
func New(name, collection string, opts ...Option) (*RetrievedGraph, error) {
	if name == "" {
		return nil, fmt.Errorf("graphfetch: dataset name must not be empty")
	}
	if collection == "" {
		return nil, fmt.Errorf("graphfetch: collection must not be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	spec := cfg.spec
	if spec == nil {
		var err error
		spec, err = catalog.Builtin().Lookup(collection, name, cfg.version)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatasetUnknown, err)
		}
	} else if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("graphfetch: %w", err)
	}

	cacheRoot := cfg.cacheRoot
	if cacheRoot == "" {
		cacheRoot = os.Getenv(CacheDirEnv)
	}
	if cacheRoot == "" {
		cacheRoot = DefaultCacheDir
	}

	log := cfg.log
	if log == nil {
		switch cfg.verbosity {
		case Silent:
			log = logging.Discard()
		case Progress:
			log = logging.New(os.Stderr, slog.LevelDebug)
		default:
			log = logging.New(os.Stderr, slog.LevelInfo)
		}
	}

	return &RetrievedGraph{
		spec:             spec,
		directed:         cfg.directed,
		verbosity:        cfg.verbosity,
		cacheRoot:        cacheRoot,
		checksumRequired: cfg.checksumRequired,
		graphOptions:     cfg.graphOptions,
		builder:          cfg.builder,
		httpClient:       cfg.httpClient,
		retry:            cfg.retry,
		attemptTimeout:   cfg.attemptTimeout,
		parallel:         cfg.parallel,
		log:              log.With("dataset", spec.Name, "collection", spec.Collection, "version", spec.Version),
	}, nil
}

// Name returns the dataset name.
func (g *RetrievedGraph) Name() string { return g.spec.Name }

// Collection returns the collection identifier.
func (g *RetrievedGraph) Collection() string { return g.spec.Collection }

// Version returns the resolved dataset version.
func (g *RetrievedGraph) Version() string { return g.spec.Version }

// CacheRoot returns the resolved cache root directory.
func (g *RetrievedGraph) CacheRoot() string { return g.cacheRoot }
