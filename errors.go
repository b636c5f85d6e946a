package graphfetch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDatasetUnknown marks a dataset, collection or version that is not
	// in the catalog. Not retried.
	ErrDatasetUnknown = errors.New("dataset unknown")

	// ErrDownloadFailed marks exhaustion of every remote location after
	// retries. The wrapped *DownloadError lists each attempted location.
	ErrDownloadFailed = errors.New("download failed")

	// ErrIntegrityMismatch marks a downloaded payload whose digest did not
	// match the published checksum. The corrupt bytes are discarded before
	// this error is reported.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrConstructionFailed wraps a GraphBuilder failure verbatim.
	ErrConstructionFailed = errors.New("graph construction failed")
)

// DownloadError reports that every configured location for a file was
// exhausted. It matches ErrDownloadFailed and unwraps to the per-location
// errors, so errors.Is also finds ErrIntegrityMismatch when a tampered
// payload contributed to the failure.
type DownloadError struct {
	Dataset    string
	Collection string
	Version    string
	File       string
	Attempted  []string
	Errs       []error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s/%s@%s file %s after trying %s",
		e.Collection, e.Dataset, e.Version, e.File, strings.Join(e.Attempted, ", "))
}

func (e *DownloadError) Is(target error) bool {
	return target == ErrDownloadFailed
}

func (e *DownloadError) Unwrap() []error {
	return e.Errs
}
