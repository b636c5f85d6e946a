package graphfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/AnacletoLAB/graphfetch/internal/cache"
	"github.com/AnacletoLAB/graphfetch/internal/catalog"
	"github.com/AnacletoLAB/graphfetch/internal/download"
	"github.com/AnacletoLAB/graphfetch/internal/ledger"
)

// LedgerFile is the name of the retrieval ledger at the cache root.
const LedgerFile = "retrievals.db"

// Outcome classifies how a file was materialized.
type Outcome string

const (
	// AlreadyCached means the valid cache entry was reused, with no
	// network I/O.
	AlreadyCached Outcome = "cached"
	// Downloaded means the file was fetched from a remote location.
	Downloaded Outcome = "downloaded"
	// Failed means every location was exhausted without success.
	Failed Outcome = "failed"
)

// FileResult is the outcome of fetch-or-reuse for one file.
type FileResult struct {
	Name    string
	Outcome Outcome
	// Path is the materialized file (the archive, for extractable files).
	Path string
	// BuildPath is the path handed to the graph builder: the extracted
	// file when the catalog requests extraction, else Path.
	BuildPath string
	// URL is the location that served the file; empty for cache hits.
	URL    string
	SHA256 string
	Err    error
}

// FetchResult is the outcome of fetch-or-reuse for a whole dataset.
type FetchResult struct {
	Name       string
	Collection string
	Version    string
	// Dir is the dataset version directory under the cache root.
	Dir   string
	Files []FileResult
}

// Downloaded reports how many files came over the network.
func (r *FetchResult) Downloaded() int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == Downloaded {
			n++
		}
	}
	return n
}

// BuildPaths returns the paths to hand to a graph builder, in catalog order.
func (r *FetchResult) BuildPaths() []string {
	out := make([]string, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.BuildPath
	}
	return out
}

// Fetch ensures every file of the dataset is present and verified under the
// cache root, downloading what is missing or invalid. It is idempotent: with
// a valid cache it performs no network I/O. Files of one dataset download
// through a bounded concurrent pool.
func (g *RetrievedGraph) Fetch(ctx context.Context) (*FetchResult, error) {
	store, err := cache.New(g.cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("graphfetch: %w", err)
	}

	led, err := ledger.Open(filepath.Join(g.cacheRoot, LedgerFile))
	if err != nil {
		// The ledger is advisory; retrieval proceeds without it.
		g.log.Warn("retrieval ledger unavailable", "error", err)
		led = nil
	} else {
		defer led.Close()
	}

	spec := g.spec
	result := &FetchResult{
		Name:       spec.Name,
		Collection: spec.Collection,
		Version:    spec.Version,
		Dir:        store.EntryDir(spec.Collection, spec.Name, spec.Version),
		Files:      make([]FileResult, len(spec.Files)),
	}

	p := pool.New().WithMaxGoroutines(g.parallel).WithContext(ctx)
	for i := range spec.Files {
		p.Go(func(ctx context.Context) error {
			fr, err := g.fetchFile(ctx, store, led, spec.Files[i])
			result.Files[i] = *fr
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// Load runs Fetch and then delegates graph construction to the configured
// GraphBuilder with the resolved paths, the directed flag and the open
// options map. Construction is deterministic given the same files and
// options, so repeated Loads with a valid cache return equivalent handles.
func (g *RetrievedGraph) Load(ctx context.Context) (GraphHandle, error) {
	result, err := g.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if g.builder == nil {
		return nil, fmt.Errorf("graphfetch: %s/%s: no graph builder configured", g.spec.Collection, g.spec.Name)
	}

	src := BuildSource{
		Name:       g.spec.Name,
		Collection: g.spec.Collection,
		Version:    g.spec.Version,
		Directed:   g.directed,
		Paths:      result.BuildPaths(),
		Options:    g.graphOptions,
	}
	if len(src.Paths) > 0 {
		src.EdgePath = src.Paths[0]
	}

	handle, err := g.builder.Build(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrConstructionFailed, g.spec.Collection, g.spec.Name, err)
	}
	return handle, nil
}

// fetchFile runs fetch-or-reuse for a single file: cache check, then each
// remote location in order with per-location retries, then extraction.
func (g *RetrievedGraph) fetchFile(ctx context.Context, store *cache.Store, led *ledger.Ledger, fs catalog.FileSpec) (*FileResult, error) {
	fr := &FileResult{Name: fs.Name, Outcome: Failed}

	if g.checksumRequired && fs.SHA256 == "" {
		fr.Err = fmt.Errorf("graphfetch: %s/%s file %s publishes no checksum", g.spec.Collection, g.spec.Name, fs.Name)
		return fr, fr.Err
	}

	entry, err := store.Resolve(g.spec.Collection, g.spec.Name, g.spec.Version, fs.Name, fs.SHA256)
	if err != nil {
		fr.Err = err
		return fr, err
	}

	if entry.Valid(fs.SHA256) {
		fr.Outcome = AlreadyCached
		fr.Path = entry.Path
		fr.SHA256 = entry.SHA256
		g.log.Info("using cached file", "file", fs.Name, "path", entry.Path)
		return g.ensureExtracted(ctx, store, fs, fr)
	}
	if entry.Exists {
		g.log.Warn("cached file failed verification, re-downloading", "file", fs.Name)
	}

	client := download.NewClient(g.httpClient, download.Config{
		AttemptTimeout: g.attemptTimeout,
		UserAgent:      "graphfetch",
		Progress:       g.verbosity >= Progress,
		Logger:         g.log,
	})

	var attempted []string
	var locErrs []error
	for _, url := range fs.URLs {
		if err := ctx.Err(); err != nil {
			fr.Err = err
			return fr, err
		}
		attempted = append(attempted, url)

		var written *cache.WriteResult
		var transfer *download.Result
		err := g.retry.Do(ctx, "download "+fs.Name, func() error {
			var err error
			written, err = store.Write(ctx, entry.Path, fs.SHA256, func(w io.Writer) error {
				var ferr error
				transfer, ferr = client.Fetch(ctx, url, fs.Name, w)
				return ferr
			})
			return err
		})
		if err == nil {
			fr.Outcome = Downloaded
			fr.Path = written.Path
			fr.SHA256 = written.SHA256
			fr.URL = url
			g.log.Info("downloaded file", "file", fs.Name, "url", url, "bytes", written.Bytes)
			g.record(ctx, led, fs, written, transfer, url)
			return g.ensureExtracted(ctx, store, fs, fr)
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			fr.Err = err
			return fr, err
		}
		if errors.Is(err, download.ErrChecksum) {
			err = fmt.Errorf("%w at %s: %w", ErrIntegrityMismatch, url, err)
			g.log.Warn("integrity mismatch, trying next location", "file", fs.Name, "url", url)
		} else {
			g.log.Warn("location failed, trying next", "file", fs.Name, "url", url, "error", err)
		}
		locErrs = append(locErrs, err)
	}

	dlErr := &DownloadError{
		Dataset:    g.spec.Name,
		Collection: g.spec.Collection,
		Version:    g.spec.Version,
		File:       fs.Name,
		Attempted:  attempted,
		Errs:       locErrs,
	}
	fr.Err = dlErr
	return fr, dlErr
}

// ensureExtracted decompresses an archive entry when the catalog requests it
// and the extracted file is not already materialized.
func (g *RetrievedGraph) ensureExtracted(ctx context.Context, store *cache.Store, fs catalog.FileSpec, fr *FileResult) (*FileResult, error) {
	fr.BuildPath = fr.Path
	if !fs.Extract {
		return fr, nil
	}
	dest := cache.ExtractedPath(fr.Path)
	if dest == "" {
		return fr, nil
	}
	if _, err := os.Stat(dest); err == nil {
		fr.BuildPath = dest
		return fr, nil
	}

	g.log.Info("extracting archive", "file", fs.Name)
	dest, err := store.Extract(ctx, fr.Path)
	if err != nil {
		fr.Err = err
		return fr, fmt.Errorf("extract %s: %w", fs.Name, err)
	}
	fr.BuildPath = dest
	return fr, nil
}

// record appends a ledger row for a completed download. Ledger failures are
// logged, never fatal.
func (g *RetrievedGraph) record(ctx context.Context, led *ledger.Ledger, fs catalog.FileSpec, written *cache.WriteResult, transfer *download.Result, url string) {
	if led == nil {
		return
	}
	rec := &ledger.Record{
		Collection: g.spec.Collection,
		Dataset:    g.spec.Name,
		Version:    g.spec.Version,
		File:       fs.Name,
		URL:        url,
		SHA256:     written.SHA256,
		Bytes:      written.Bytes,
	}
	if transfer != nil {
		rec.Duration = transfer.Duration
	}
	if err := led.Append(ctx, rec); err != nil {
		g.log.Warn("ledger append failed", "file", fs.Name, "error", err)
	}
}
