package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vavato_scrooper/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "scraper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run := &models.ScrapeRun{
		RunID:     "3f1c2a9e-run",
		SiteID:    "vavato",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Status:    models.RunStatusRunning,
	}
	id, err := store.CreateRun(run)
	require.NoError(t, err)
	require.NotZero(t, id)
	run.ID = id

	finished := run.StartedAt.Add(time.Minute)
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.Count(&models.Result{
		OpenAuctions:    make([]models.AuctionRecord, 4),
		ClosedAuctions:  make([]models.AuctionRecord, 2),
		OpenAuctionLots: make([]models.LotRecord, 30),
	})
	run.PagesFetched = 12
	run.PagesFailed = 1
	run.OutputPath = "output/UpcomingAuction_20240102_030405.xlsx"
	require.NoError(t, store.UpdateRun(run))

	got, err := store.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3f1c2a9e-run", got.RunID)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 4, got.OpenAuctions)
	assert.Equal(t, 2, got.ClosedAuctions)
	assert.Equal(t, 30, got.OpenAuctionLots)
	assert.Equal(t, 0, got.ClosedAuctionLots)
	assert.Equal(t, 12, got.PagesFetched)
	assert.Equal(t, 1, got.PagesFailed)
	assert.Equal(t, run.OutputPath, got.OutputPath)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestSQLiteStore_GetRunMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun(42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_Logs(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateRun(&models.ScrapeRun{RunID: "r", SiteID: "vavato", StartedAt: time.Now(), Status: models.RunStatusRunning})
	require.NoError(t, err)

	require.NoError(t, store.Log(&id, models.LogLevelInfo, "Starting scrape for Vavato", "vavato"))
	require.NoError(t, store.Log(&id, models.LogLevelError, "Scrape aborted", "vavato"))
	require.NoError(t, store.Log(nil, models.LogLevelWarn, "unattached", "vavato"))

	logs, err := store.GetLogs(id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogLevelInfo, logs[0].Level)
	assert.Equal(t, "Scrape aborted", logs[1].Message)
	require.NotNil(t, logs[1].RunID)
	assert.Equal(t, id, *logs[1].RunID)
}
