package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ExtractedPath returns the path an archive decompresses to, or "" when the
// file carries no recognized archive suffix. Multi-file tarballs are handed
// to the native engine as-is and are not considered extractable here.
func ExtractedPath(archivePath string) string {
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return ""
	case strings.HasSuffix(archivePath, ".gz"):
		return strings.TrimSuffix(archivePath, ".gz")
	case strings.HasSuffix(archivePath, ".zst"):
		return strings.TrimSuffix(archivePath, ".zst")
	default:
		return ""
	}
}

// Extract decompresses a cached archive next to itself, using the same
// temp-write plus atomic-rename discipline as downloads. The archive is kept
// so later runs can re-verify its checksum. Returns the extracted path.
func (s *Store) Extract(ctx context.Context, archivePath string) (string, error) {
	dest := ExtractedPath(archivePath)
	if dest == "" {
		return "", fmt.Errorf("no extraction rule for %s", archivePath)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var src io.Reader
	var closer io.Closer
	switch {
	case strings.HasSuffix(archivePath, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open gzip stream %s: %w", archivePath, err)
		}
		src, closer = gz, gz
	case strings.HasSuffix(archivePath, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open zstd stream %s: %w", archivePath, err)
		}
		rc := zr.IOReadCloser()
		src, closer = rc, rc
	}
	defer closer.Close()

	_, err = s.Write(ctx, dest, "", func(w io.Writer) error {
		if _, err := io.Copy(w, &ctxReader{ctx: ctx, r: src}); err != nil {
			return fmt.Errorf("decompress %s: %w", archivePath, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
