package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnacletoLAB/graphfetch/internal/download"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "graphs"))
	require.NoError(t, err)
	return s
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fillWith(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}

// tempFiles lists leftover temp files under the store root.
func tempFiles(t *testing.T, s *Store) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(s.Root(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && len(info.Name()) > 0 && info.Name()[0] == '.' {
			out = append(out, path)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestStore_WriteAndResolve(t *testing.T) {
	s := newTestStore(t)
	data := []byte("a\tb\t900\n")
	path := s.EntryPath("string", "HomoSapiens", "v1", "links.tsv")

	res, err := s.Write(context.Background(), path, sha(data), fillWith(data))
	require.NoError(t, err)
	assert.Equal(t, sha(data), res.SHA256)
	assert.Equal(t, int64(len(data)), res.Bytes)

	entry, err := s.Resolve("string", "HomoSapiens", "v1", "links.tsv", sha(data))
	require.NoError(t, err)
	assert.True(t, entry.Exists)
	assert.True(t, entry.Verified)
	assert.True(t, entry.Valid(sha(data)))
	assert.Empty(t, tempFiles(t, s))
}

func TestStore_ResolveMissingEntry(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.Resolve("string", "HomoSapiens", "v1", "links.tsv", "")
	require.NoError(t, err)
	assert.False(t, entry.Exists)
	assert.False(t, entry.Valid(""))
}

func TestStore_ResolveWithoutChecksum(t *testing.T) {
	s := newTestStore(t)
	data := []byte("payload")
	path := s.EntryPath("string", "X", "v1", "f.tsv")

	_, err := s.Write(context.Background(), path, "", fillWith(data))
	require.NoError(t, err)

	entry, err := s.Resolve("string", "X", "v1", "f.tsv", "")
	require.NoError(t, err)
	assert.True(t, entry.Exists)
	assert.False(t, entry.Verified)
	assert.True(t, entry.Valid(""))
}

func TestStore_WriteChecksumMismatchLeavesNothing(t *testing.T) {
	s := newTestStore(t)
	path := s.EntryPath("string", "X", "v1", "f.tsv")

	_, err := s.Write(context.Background(), path, sha([]byte("expected")), fillWith([]byte("tampered")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, download.ErrChecksum))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, tempFiles(t, s))
}

func TestStore_WriteMismatchKeepsPriorValidEntry(t *testing.T) {
	s := newTestStore(t)
	good := []byte("good content")
	path := s.EntryPath("string", "X", "v1", "f.tsv")

	_, err := s.Write(context.Background(), path, sha(good), fillWith(good))
	require.NoError(t, err)

	_, err = s.Write(context.Background(), path, sha(good), fillWith([]byte("bad content")))
	require.Error(t, err)

	kept, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, good, kept)
}

func TestStore_WriteFillErrorCleansUp(t *testing.T) {
	s := newTestStore(t)
	path := s.EntryPath("string", "X", "v1", "f.tsv")

	_, err := s.Write(context.Background(), path, "", func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("stream broke")
	})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, tempFiles(t, s))
}

func TestStore_WriteCancelledContextCleansUp(t *testing.T) {
	s := newTestStore(t)
	path := s.EntryPath("string", "X", "v1", "f.tsv")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Write(ctx, path, "", func(w io.Writer) error {
		w.Write([]byte("partial"))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, tempFiles(t, s))
}

func TestStore_Clean(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		path := s.EntryPath("string", name, "v1", "f.tsv")
		_, err := s.Write(ctx, path, "", fillWith([]byte(name)))
		require.NoError(t, err)
	}

	require.NoError(t, s.Clean("string", "A", ""))
	_, err := os.Stat(s.EntryPath("string", "A", "v1", "f.tsv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(s.EntryPath("string", "B", "v1", "f.tsv"))
	assert.NoError(t, err)

	require.NoError(t, s.Clean("string", "", ""))
	_, err = os.Stat(filepath.Join(s.Root(), "string"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Clean("", "", ""))
}

func TestStore_Walk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	path := s.EntryPath("string", "HomoSapiens", "v1", "links.tsv")
	_, err := s.Write(ctx, path, "", fillWith([]byte("edges")))
	require.NoError(t, err)

	// A root-level file (like the ledger) must not show up as an entry.
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "retrievals.db"), []byte("db"), 0644))

	files, err := s.Walk()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "string", files[0].Collection)
	assert.Equal(t, "HomoSapiens", files[0].Dataset)
	assert.Equal(t, "v1", files[0].Version)
	assert.Equal(t, "links.tsv", files[0].Name)
	assert.Equal(t, int64(5), files[0].Size)
}

func TestExtractedPath(t *testing.T) {
	assert.Equal(t, "/a/links.tsv", ExtractedPath("/a/links.tsv.gz"))
	assert.Equal(t, "/a/links.tsv", ExtractedPath("/a/links.tsv.zst"))
	assert.Equal(t, "", ExtractedPath("/a/bundle.tar.gz"))
	assert.Equal(t, "", ExtractedPath("/a/links.tsv"))
}

func TestStore_ExtractGzip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := []byte("a\tb\t900\nb\tc\t800\n")
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(content)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	archive := s.EntryPath("string", "X", "v1", "links.tsv.gz")
	_, err = s.Write(ctx, archive, "", fillWith(compressed.Bytes()))
	require.NoError(t, err)

	dest, err := s.Extract(ctx, archive)
	require.NoError(t, err)
	assert.Equal(t, s.EntryPath("string", "X", "v1", "links.tsv"), dest)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// The archive stays behind for later re-verification.
	_, err = os.Stat(archive)
	assert.NoError(t, err)
}

func TestStore_ExtractUnknownSuffix(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Extract(context.Background(), "/nope/file.tsv")
	assert.Error(t, err)
}
