package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".vault-research", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, note := range []string{"People/Jane.md", "Companies/Acme.md", "People/Jane.md"} {
		_, err := s.Record(ctx, Entry{
			NotePath:       note,
			Classification: "person",
			Model:          "grok-3-latest",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "People/Jane.md", all[0].NotePath)
	assert.Equal(t, "Companies/Acme.md", all[1].NotePath)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.Equal(t, StatusOK, all[0].Status)
	assert.NotEmpty(t, all[0].ID)

	two, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecord_KeepsGivenID(t *testing.T) {
	s := openTemp(t)
	e, err := s.Record(context.Background(), Entry{ID: "run-1", NotePath: "a.md"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	_, err = s.Record(context.Background(), Entry{ID: "run-1", NotePath: "a.md"})
	assert.Error(t, err, "duplicate id should fail")
}

func TestLastSuccess(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	got, err := s.LastSuccess(ctx, "People/Jane.md")
	require.NoError(t, err)
	assert.Nil(t, got)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = s.Record(ctx, Entry{NotePath: "People/Jane.md", Status: StatusOK, ArchivePath: "first", CreatedAt: base})
	require.NoError(t, err)
	_, err = s.Record(ctx, Entry{NotePath: "People/Jane.md", Status: StatusOK, ArchivePath: "second", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.Record(ctx, Entry{NotePath: "People/Jane.md", Status: StatusFailed, Error: "request failed: status 500", CreatedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	got, err = s.LastSuccess(ctx, "People/Jane.md")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.ArchivePath)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Hour)))
}

func TestLastSuccess_OnlyFailures(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Record(ctx, Entry{NotePath: "x.md", Status: StatusFailed, Error: "boom"})
	require.NoError(t, err)

	got, err := s.LastSuccess(ctx, "x.md")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), Entry{NotePath: "a.md"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}
