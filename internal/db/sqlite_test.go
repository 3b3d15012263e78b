package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadResultSet(t *testing.T) {
	db := openTestDB(t)

	records := []models.ResultRecord{
		{URL: "https://x/2", Subcat: "Domy", RawDate: "02/01/2024"},
		{URL: "https://x/1", Subcat: "Byty", City: "Košice", ZipCode: "04001", RawDate: "01/01/2024 08:00"},
		{URL: "https://x/3"},
	}

	set, err := db.SaveResultSet("latest", "srv-1", records)
	require.NoError(t, err)
	assert.NotZero(t, set.ID)
	assert.Equal(t, 3, set.Count)

	got, loaded, err := db.GetResultSet(set.ID)
	require.NoError(t, err)
	assert.Equal(t, "latest", got.Mode)
	assert.Equal(t, "srv-1", got.JobID)
	assert.WithinDuration(t, set.FetchedAt, got.FetchedAt, time.Second)

	require.Len(t, loaded, 3)
	assert.Equal(t, "https://x/2", loaded[0].URL)
	assert.Equal(t, "Košice", loaded[1].City)
	assert.True(t, loaded[1].Day.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)))
	assert.False(t, loaded[2].HasDay())
}

func TestLatestAndList(t *testing.T) {
	db := openTestDB(t)

	_, _, err := db.LatestResultSet()
	assert.True(t, errors.Is(err, ErrNotFound))

	first, err := db.SaveResultSet("history", "", []models.ResultRecord{{URL: "a"}})
	require.NoError(t, err)
	second, err := db.SaveResultSet("latest", "srv-2", []models.ResultRecord{{URL: "b"}, {URL: "c"}})
	require.NoError(t, err)

	latest, records, err := db.LatestResultSet()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Len(t, records, 2)

	sets, err := db.ListResultSets(0)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, second.ID, sets[0].ID)
	assert.Equal(t, first.ID, sets[1].ID)
}

func TestGetResultSet_Missing(t *testing.T) {
	db := openTestDB(t)
	_, _, err := db.GetResultSet(42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPruneResultSets(t *testing.T) {
	db := openTestDB(t)
	var ids []int64
	for i := 0; i < 4; i++ {
		set, err := db.SaveResultSet("latest", "", []models.ResultRecord{{URL: "u"}})
		require.NoError(t, err)
		ids = append(ids, set.ID)
	}

	n, err := db.PruneResultSets(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sets, err := db.ListResultSets(10)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, ids[3], sets[0].ID)

	_, _, err = db.GetResultSet(ids[0])
	assert.True(t, errors.Is(err, ErrNotFound))

	var orphans int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM result_records WHERE set_id = ?", ids[0]).Scan(&orphans))
	assert.Zero(t, orphans)
}
