// Package cache manages the on-disk dataset cache. Entries live under
// <root>/<collection>/<dataset>/<version>/<file> and are only ever replaced
// through a temp-file write followed by an atomic rename, so a reader never
// observes a partially written entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnacletoLAB/graphfetch/internal/download"
)

// Store is a dataset cache rooted at a single directory.
type Store struct {
	root string
}

// New creates (if needed) and opens a cache rooted at the given directory.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root must not be empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// EntryDir returns the directory holding one dataset version.
func (s *Store) EntryDir(collection, dataset, version string) string {
	return filepath.Join(s.root, collection, dataset, version)
}

// EntryPath returns the final path of one cached file.
func (s *Store) EntryPath(collection, dataset, version, file string) string {
	return filepath.Join(s.EntryDir(collection, dataset, version), file)
}

// Entry is the observed state of one cached file.
type Entry struct {
	Path   string
	Exists bool
	// Verified is true when a checksum was expected and matched. Files
	// without a published checksum are valid on existence alone and report
	// Verified false.
	Verified bool
	SHA256   string // observed digest, only set when verification ran
	Size     int64
}

// Valid reports whether the entry can be served without re-download.
func (e *Entry) Valid(wantSHA string) bool {
	if !e.Exists {
		return false
	}
	return wantSHA == "" || e.Verified
}

// Resolve inspects a cached file. When wantSHA is non-empty the file is
// hashed and the digest compared, so on-disk corruption is caught before
// the entry is served.
func (s *Store) Resolve(collection, dataset, version, file, wantSHA string) (*Entry, error) {
	path := s.EntryPath(collection, dataset, version, file)
	entry := &Entry{Path: path}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return entry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat cache entry %s: %w", path, err)
	}
	entry.Exists = true
	entry.Size = info.Size()

	if wantSHA == "" {
		return entry, nil
	}

	sum, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash cache entry %s: %w", path, err)
	}
	entry.SHA256 = sum
	entry.Verified = sum == wantSHA
	return entry, nil
}

// WriteResult describes a completed cache write.
type WriteResult struct {
	Path   string
	SHA256 string
	Bytes  int64
}

// Write materializes a cache entry at path. fill streams the content into
// the provided writer; the bytes are hashed while streaming and, when
// wantSHA is non-empty, verified before the temp file is renamed into place.
// On any failure the temp file is removed and path is left untouched.
func (s *Store) Write(ctx context.Context, path, wantSHA string, fill func(io.Writer) error) (*WriteResult, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	// Temp file in the destination directory so the final rename stays on
	// one filesystem and is atomic.
	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	hasher := sha256.New()
	counter := &countingWriter{}
	if err := fill(io.MultiWriter(tmp, hasher, counter)); err != nil {
		discard()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		discard()
		return nil, err
	}

	if err := tmp.Sync(); err != nil {
		discard()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if wantSHA != "" && sum != wantSHA {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("expected %s, got %s: %w", wantSHA, sum, download.ErrChecksum)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename cache entry: %w", err)
	}

	return &WriteResult{Path: path, SHA256: sum, Bytes: counter.n}, nil
}

// Clean removes cached entries. With an empty dataset the whole collection
// is dropped; with an empty version the whole dataset is dropped.
func (s *Store) Clean(collection, dataset, version string) error {
	if collection == "" {
		return fmt.Errorf("clean requires a collection")
	}
	target := filepath.Join(s.root, collection)
	if dataset != "" {
		target = filepath.Join(target, dataset)
		if version != "" {
			target = filepath.Join(target, version)
		}
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("clean %s: %w", target, err)
	}
	return nil
}

// CachedFile is one materialized file found by Walk.
type CachedFile struct {
	Collection string
	Dataset    string
	Version    string
	Name       string
	Path       string
	Size       int64
}

// Walk lists every materialized cache file. Temp files and the retrieval
// ledger at the cache root are skipped.
func (s *Store) Walk() ([]CachedFile, error) {
	var out []CachedFile
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		// Anything not at <collection>/<dataset>/<version>/<file> depth is
		// not a cache entry (e.g. the ledger db at the root).
		if len(parts) != 4 {
			return nil
		}
		out = append(out, CachedFile{
			Collection: parts[0],
			Dataset:    parts[1],
			Version:    parts[2],
			Name:       parts[3],
			Path:       path,
			Size:       info.Size(),
		})
		return nil
	})
	return out, err
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
