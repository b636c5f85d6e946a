package graphfetch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AnacletoLAB/graphfetch/internal/catalog"
	"github.com/AnacletoLAB/graphfetch/internal/download"
)

type config struct {
	version          string
	cacheRoot        string
	directed         bool
	verbosity        Verbosity
	checksumRequired bool
	graphOptions     map[string]any
	builder          GraphBuilder
	httpClient       *http.Client
	retry            *download.RetryPolicy
	attemptTimeout   time.Duration
	parallel         int
	spec             *catalog.Spec
	log              *slog.Logger
}

func defaultConfig() config {
	return config{
		version:        "current",
		verbosity:      Summary,
		retry:          download.DefaultRetryPolicy(),
		attemptTimeout: 15 * time.Minute,
		parallel:       4,
	}
}

// Option configures a RetrievedGraph.
type Option func(*config)

// WithVersion selects a dataset version. The default "current" resolves to
// the newest version listed in the catalog.
func WithVersion(version string) Option {
	return func(c *config) { c.version = version }
}

// WithCacheRoot sets the cache directory. When unset, the GRAPH_CACHE_DIR
// environment variable is consulted, then the "graphs" directory.
func WithCacheRoot(dir string) Option {
	return func(c *config) { c.cacheRoot = dir }
}

// WithDirected builds the graph as directed instead of undirected.
func WithDirected(directed bool) Option {
	return func(c *config) { c.directed = directed }
}

// WithVerbosity controls terminal output. The default is Summary.
func WithVerbosity(v Verbosity) Option {
	return func(c *config) { c.verbosity = v }
}

// WithChecksumRequired makes retrieval fail for files that publish no
// checksum, instead of accepting them on existence alone.
func WithChecksumRequired(required bool) Option {
	return func(c *config) { c.checksumRequired = required }
}

// WithGraphOptions forwards an open options map verbatim to the graph
// builder. Keys are defined by the native engine.
func WithGraphOptions(opts map[string]any) Option {
	return func(c *config) { c.graphOptions = opts }
}

// WithBuilder sets the native graph constructor used by Load.
func WithBuilder(b GraphBuilder) Option {
	return func(c *config) { c.builder = b }
}

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithRetryPolicy replaces the per-location retry policy.
func WithRetryPolicy(maxRetries int, initialBackoff, maxBackoff time.Duration) Option {
	return func(c *config) {
		c.retry = &download.RetryPolicy{
			MaxRetries:     maxRetries,
			InitialBackoff: initialBackoff,
			MaxBackoff:     maxBackoff,
			JitterFraction: 0.25,
		}
	}
}

// WithAttemptTimeout bounds a single download attempt. Exceeding it counts
// as a transient failure subject to the retry policy.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *config) { c.attemptTimeout = d }
}

// WithSpec bypasses the catalog and retrieves a caller-defined dataset.
func WithSpec(spec DatasetSpec) Option {
	return func(c *config) { c.spec = spec.internal() }
}

// WithLogger replaces the logger derived from the verbosity setting.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}
