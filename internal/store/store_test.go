package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cbc-history-etl/internal/config"
	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

func sampleReport(id string, goose int) domain.Report {
	code := "MACC"
	result := domain.NewExtractionResult()
	result.CountInfo.CountCode = &code
	result.Years = []int{1997}
	result.SpeciesTable = []domain.SpeciesRecord{
		{Species: "Canada Goose", Counts: map[string]int{"1997": goose}},
	}
	return domain.Report{
		ID:          id,
		Filename:    "macc.csv",
		Format:      "csv",
		Result:      result,
		ExtractedAt: time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC),
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, sampleReport("macc-1", 140)))
	got, err := s.Get(ctx, "macc-1")
	require.NoError(t, err)
	assert.Equal(t, "macc.csv", got.Filename)
	require.NotNil(t, got.Result)
	assert.Equal(t, 140, got.Result.SpeciesTable[0].Counts["1997"])
	assert.True(t, got.ExtractedAt.Equal(time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC)))

	// Put replaces.
	require.NoError(t, s.Put(ctx, sampleReport("macc-1", 12)))
	got, err = s.Get(ctx, "macc-1")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Result.SpeciesTable[0].Counts["1997"])
}

func TestMemory(t *testing.T) {
	s := NewMemory(4)
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(2)

	require.NoError(t, s.Put(ctx, sampleReport("a", 1)))
	require.NoError(t, s.Put(ctx, sampleReport("b", 2)))
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sampleReport("c", 3)))

	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, s.Len())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sampleReport("macc-1", 140)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "macc-1")
	require.NoError(t, err)
	assert.Equal(t, "macc-1", got.ID)
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		s, err := Open(&config.Config{StoreDriver: config.StoreNone})
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("memory", func(t *testing.T) {
		s, err := Open(&config.Config{StoreDriver: config.StoreMemory, StoreCacheSize: 8})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(&config.Config{StoreDriver: config.StoreSQLite, StorePath: filepath.Join(t.TempDir(), "r.db")})
		require.NoError(t, err)
		assert.IsType(t, &SQLite{}, s)
		require.NoError(t, s.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(&config.Config{StoreDriver: "redis"})
		require.Error(t, err)
	})
}
