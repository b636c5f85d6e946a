// Package catalog holds the table of retrievable datasets: which collections
// exist, which versions of each dataset are published, and where each file
// can be downloaded from. The built-in table is embedded at compile time;
// callers may register additional specs at runtime.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed data/*.toml
var builtinFS embed.FS

// ErrNotFound is returned when a collection, dataset or version is not listed.
var ErrNotFound = errors.New("dataset not found in catalog")

// FileSpec describes a single remote file of a dataset version.
type FileSpec struct {
	// Name is the canonical file name under the cache directory.
	Name string `toml:"name"`
	// URLs are tried in order until one yields the file.
	URLs []string `toml:"urls"`
	// SHA256 is the expected hex digest of the downloaded bytes.
	// Empty means no checksum is published for this file.
	SHA256 string `toml:"sha256,omitempty"`
	// Extract marks gzip/zstd archives that should be decompressed
	// next to the archive after download.
	Extract bool `toml:"extract,omitempty"`
}

// Spec identifies one retrievable dataset version. Immutable once registered.
type Spec struct {
	Name        string
	Collection  string
	Version     string
	Files       []FileSpec
	Description string
	Citation    string
}

// Validate checks that a spec is complete enough to be retrievable.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec has no dataset name")
	}
	if s.Collection == "" {
		return fmt.Errorf("spec %s has no collection", s.Name)
	}
	if s.Version == "" {
		return fmt.Errorf("spec %s/%s has no version", s.Collection, s.Name)
	}
	if len(s.Files) == 0 {
		return fmt.Errorf("spec %s/%s@%s lists no files", s.Collection, s.Name, s.Version)
	}
	for _, f := range s.Files {
		if f.Name == "" {
			return fmt.Errorf("spec %s/%s@%s has a file without a name", s.Collection, s.Name, s.Version)
		}
		if len(f.URLs) == 0 {
			return fmt.Errorf("spec %s/%s@%s file %s has no urls", s.Collection, s.Name, s.Version, f.Name)
		}
	}
	return nil
}

type specKey struct {
	collection string
	name       string
	version    string
}

// Catalog is a concurrency-safe table of dataset specs.
type Catalog struct {
	mu     sync.RWMutex
	specs  map[specKey]*Spec
	// versions preserves registration order per dataset so that
	// "current" resolves to the most recently listed version.
	versions map[specKey][]string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		specs:    make(map[specKey]*Spec),
		versions: make(map[specKey][]string),
	}
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the catalog embedded in the binary. The embedded tables are
// parsed once; a parse failure is a packaging bug and panics.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		builtin = New()
		builtinErr = builtin.loadEmbedded()
	})
	if builtinErr != nil {
		panic(fmt.Sprintf("catalog: embedded tables are invalid: %v", builtinErr))
	}
	return builtin
}

// Register adds a spec to the catalog. Registering the same
// collection/name/version twice replaces the previous entry.
func (c *Catalog) Register(spec *Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := specKey{spec.Collection, spec.Name, spec.Version}
	nameKey := specKey{collection: spec.Collection, name: spec.Name}
	if _, exists := c.specs[key]; !exists {
		c.versions[nameKey] = append(c.versions[nameKey], spec.Version)
	}
	c.specs[key] = spec
	return nil
}

// Lookup resolves a dataset spec. The version "current" (or empty) resolves
// to the newest registered version. Returns ErrNotFound, with a closest-match
// hint when one exists, for unknown datasets.
func (c *Catalog) Lookup(collection, name, version string) (*Spec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nameKey := specKey{collection: collection, name: name}
	listed := c.versions[nameKey]
	if len(listed) == 0 {
		hint := c.closestLocked(collection, name)
		if hint != "" {
			return nil, fmt.Errorf("%w: %s/%s (did you mean %q?)", ErrNotFound, collection, name, hint)
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, name)
	}

	if version == "" || version == "current" {
		version = listed[len(listed)-1]
	}
	spec, ok := c.specs[specKey{collection, name, version}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s has no version %q (available: %s)",
			ErrNotFound, collection, name, version, strings.Join(listed, ", "))
	}
	return spec, nil
}

// Collections lists the collection identifiers present in the catalog.
func (c *Catalog) Collections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for key := range c.versions {
		seen[key.collection] = true
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// Datasets lists the dataset names of a collection, sorted.
func (c *Catalog) Datasets(collection string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for key := range c.versions {
		if key.collection == collection {
			out = append(out, key.name)
		}
	}
	sort.Strings(out)
	return out
}

// Versions lists the versions of a dataset in registration order,
// oldest first. Empty if the dataset is unknown.
func (c *Catalog) Versions(collection, name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	listed := c.versions[specKey{collection: collection, name: name}]
	out := make([]string, len(listed))
	copy(out, listed)
	return out
}

// closestLocked returns the dataset name in the collection closest to the
// requested one, or "" when nothing is remotely similar. Callers hold mu.
func (c *Catalog) closestLocked(collection, name string) string {
	best := ""
	bestDist := len(name)/2 + 1 // suggest only when reasonably close
	for key := range c.versions {
		if key.collection != collection {
			continue
		}
		d := editDistance(strings.ToLower(name), strings.ToLower(key.name))
		if d < bestDist {
			best, bestDist = key.name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// --- embedded table parsing ---

// tomlCatalog mirrors the on-disk shape of the embedded catalog tables.
type tomlCatalog struct {
	Collection string        `toml:"collection"`
	Datasets   []tomlDataset `toml:"dataset"`
}

type tomlDataset struct {
	Name        string        `toml:"name"`
	Description string        `toml:"description,omitempty"`
	Citation    string        `toml:"citation,omitempty"`
	Versions    []tomlVersion `toml:"version"`
}

type tomlVersion struct {
	Version string     `toml:"version"`
	Files   []FileSpec `toml:"file"`
}

func (c *Catalog) loadEmbedded() error {
	entries, err := builtinFS.ReadDir("data")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("data/" + entry.Name())
		if err != nil {
			return err
		}
		var table tomlCatalog
		if err := toml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		for _, ds := range table.Datasets {
			for _, ver := range ds.Versions {
				spec := &Spec{
					Name:        ds.Name,
					Collection:  table.Collection,
					Version:     ver.Version,
					Files:       ver.Files,
					Description: ds.Description,
					Citation:    ds.Citation,
				}
				if err := c.Register(spec); err != nil {
					return fmt.Errorf("%s: %w", entry.Name(), err)
				}
			}
		}
	}
	return nil
}
