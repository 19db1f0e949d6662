package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveMeta("k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestExpectedDurationsAverageRuns(t *testing.T) {
	db := openTestDB(t)
	cfg := config.DefaultGeneration()

	require.NoError(t, db.SaveRun(Run{ID: "a", Seed: 1}, cfg, map[string]float64{
		"tileGen":           1,
		"createTerritories": 4,
	}))
	require.NoError(t, db.SaveRun(Run{ID: "b", Seed: 2}, cfg, map[string]float64{
		"tileGen": 3,
	}))

	got, err := db.ExpectedDurations()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, got["tileGen"])
	assert.Equal(t, 4*time.Second, got["createTerritories"])
	assert.NotContains(t, got, "linkAdj")
}

func TestExpectedDurationsEmpty(t *testing.T) {
	got, err := openTestDB(t).ExpectedDurations()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunTimings(t *testing.T) {
	db := openTestDB(t)
	times := map[string]float64{"tileGen": 0.25, "workerInit": 1.5}
	require.NoError(t, db.SaveRun(Run{ID: "a"}, config.DefaultGeneration(), times))
	require.NoError(t, db.SaveRun(Run{ID: "b"}, config.DefaultGeneration(), map[string]float64{"tileGen": 9}))

	got, err := db.RunTimings("a")
	require.NoError(t, err)
	assert.Equal(t, times, got)

	got, err = db.RunTimings("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRun(Run{ID: "a"}, config.DefaultGeneration(), map[string]float64{"tileGen": 1}))

	err := db.SaveRun(Run{ID: "a"}, config.DefaultGeneration(), map[string]float64{"tileGen": 5})
	require.Error(t, err)

	got, err := db.ExpectedDurations()
	require.NoError(t, err)
	assert.Equal(t, time.Second, got["tileGen"], "failed run must not leave timings behind")
}

func TestRecentRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		run := Run{
			ID:          id,
			Seed:        int64(i + 1),
			Width:       2400,
			Height:      1350,
			Tiles:       100 * (i + 1),
			Territories: i,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.SaveRun(run, config.DefaultGeneration(), nil))
	}

	runs, err := db.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, int64(3), runs[0].Seed)
	assert.Equal(t, 300, runs[0].Tiles)
	assert.Equal(t, 2400.0, runs[0].Width)
	assert.Contains(t, runs[0].ConfigJSON, `"territory_size":100`)
	assert.True(t, runs[0].CreatedAt.Equal(base.Add(2*time.Hour)))
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetMeta("last_run")
	assert.Error(t, err)

	require.NoError(t, db.SaveMeta("last_run", "a"))
	require.NoError(t, db.SaveMeta("last_run", "b"))
	v, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}
