package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "retrievals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func record(dataset, version, file, sha string) *Record {
	return &Record{
		Collection: "string",
		Dataset:    dataset,
		Version:    version,
		File:       file,
		URL:        "http://example.org/" + file,
		SHA256:     sha,
		Bytes:      42,
		Duration:   120 * time.Millisecond,
	}
}

func TestLedger_AppendAndEntries(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, record("HomoSapiens", "v1", "a.gz", "aaa")))
	require.NoError(t, l.Append(ctx, record("MusMusculus", "v1", "b.gz", "bbb")))

	all, err := l.Entries(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Most recent first
	assert.Equal(t, "MusMusculus", all[0].Dataset)
	assert.Equal(t, "aaa", all[1].SHA256)
	assert.Equal(t, 120*time.Millisecond, all[0].Duration)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestLedger_EntriesFiltered(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, record("HomoSapiens", "v1", "a.gz", "aaa")))
	require.NoError(t, l.Append(ctx, record("MusMusculus", "v1", "b.gz", "bbb")))

	got, err := l.Entries(ctx, "string", "HomoSapiens")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "HomoSapiens", got[0].Dataset)

	got, err = l.Entries(ctx, "other", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLedger_LatestChecksum(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	sum, err := l.LatestChecksum(ctx, "string", "HomoSapiens", "v1", "a.gz")
	require.NoError(t, err)
	assert.Equal(t, "", sum)

	require.NoError(t, l.Append(ctx, record("HomoSapiens", "v1", "a.gz", "old")))
	require.NoError(t, l.Append(ctx, record("HomoSapiens", "v1", "a.gz", "new")))

	sum, err = l.LatestChecksum(ctx, "string", "HomoSapiens", "v1", "a.gz")
	require.NoError(t, err)
	assert.Equal(t, "new", sum)
}

func TestLedger_OpenCreatesParentlessPath(t *testing.T) {
	// Opening twice against the same file must work (WAL, busy timeout).
	path := filepath.Join(t.TempDir(), "retrievals.db")
	l1, err := Open(path)
	require.NoError(t, err)
	defer l1.Close()

	require.NoError(t, l1.Append(context.Background(), record("A", "v1", "a.gz", "x")))

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	got, err := l2.Entries(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
