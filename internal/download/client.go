// Package download implements streamed HTTP retrieval with bounded retries,
// multi-location fallback classification and optional terminal progress.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ErrChecksum marks a payload whose digest did not match the expected one.
// It is never retried against the same location.
var ErrChecksum = errors.New("checksum mismatch")

// ErrAttemptTimeout marks a single attempt that exceeded its timeout while
// the caller's context was still live. Counts as transient.
var ErrAttemptTimeout = errors.New("attempt timed out")

// HTTPError is a non-2xx response from a remote location.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Config configures a download client.
type Config struct {
	// AttemptTimeout bounds a single GET attempt, response body included.
	// Zero means no per-attempt deadline beyond the caller's context.
	AttemptTimeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// Progress enables a terminal progress bar per transfer.
	Progress bool
	// Logger receives per-attempt debug output. Nil discards.
	Logger *slog.Logger
}

// Client performs single-attempt streamed downloads. Retry and fallback
// policy live with the caller so that each attempt writes to a fresh sink.
type Client struct {
	http *http.Client
	cfg  Config
	log  *slog.Logger
}

// NewClient creates a download client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{http: httpClient, cfg: cfg, log: log}
}

// Result describes a completed transfer.
type Result struct {
	Bytes         int64
	ContentLength int64 // -1 when the server did not supply one
	Duration      time.Duration
}

// Fetch performs one streamed GET of url into w. It returns an *HTTPError
// for non-success statuses and the context error when cancelled mid-stream.
// Progress reporting never fails the transfer.
func (c *Client) Fetch(ctx context.Context, url, description string, w io.Writer) (*Result, error) {
	parent := ctx
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.attemptErr(parent, ctx, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, URL: url}
	}

	dst := w
	if c.cfg.Progress {
		bar := newBar(resp.ContentLength, description)
		defer bar.Close()
		dst = io.MultiWriter(w, bar)
	}

	n, err := io.Copy(dst, &contextReader{ctx: ctx, r: resp.Body})
	if err != nil {
		return nil, c.attemptErr(parent, ctx, fmt.Errorf("stream %s: %w", url, err))
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return nil, fmt.Errorf("stream %s: short read, got %d of %d bytes", url, n, resp.ContentLength)
	}

	res := &Result{Bytes: n, ContentLength: resp.ContentLength, Duration: time.Since(start)}
	c.log.Debug("downloaded", "url", url, "bytes", n, "duration", res.Duration)
	return res, nil
}

// attemptErr rewrites a per-attempt deadline expiry as ErrAttemptTimeout so
// the retry policy treats it as transient. Caller cancellation passes through.
func (c *Client) attemptErr(parent, attempt context.Context, err error) error {
	if attempt.Err() == context.DeadlineExceeded && parent.Err() == nil {
		return fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, c.cfg.AttemptTimeout, err)
	}
	return err
}

// newBar builds a progress bar for a transfer. Unknown lengths render a
// byte-counting spinner.
func newBar(total int64, description string) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.DefaultBytes(total, description)
}

// contextReader aborts a streaming copy as soon as its context is cancelled,
// instead of waiting for the next network read to fail.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
