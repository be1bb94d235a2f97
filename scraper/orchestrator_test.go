package scraper

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vavato_scrooper/config"
	"vavato_scrooper/models"
)

const closedListing = "https://vavato.com/en/auctions?auctionBiddingStatuses=BIDDING_CLOSED"

type memoryStore struct {
	mu   sync.Mutex
	runs []models.ScrapeRun
	logs []string
}

func (s *memoryStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return int64(len(s.runs)), nil
}

func (s *memoryStore) UpdateRun(run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID-1] = *run
	return nil
}

func (s *memoryStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, string(level)+" "+message)
	return nil
}

type captureExporter struct {
	calls  int
	runID  string
	result *models.Result
}

func (e *captureExporter) Export(ctx context.Context, runID string, res *models.Result) (string, error) {
	e.calls++
	e.runID = runID
	e.result = res
	return "output/UpcomingAuction_20231114_221320.xlsx", nil
}

func testConfig() *config.Config {
	site := config.DefaultSite()
	site.AllowedPrefixes = testPrefixes
	return &config.Config{
		Site:     site,
		Scraper:  config.ScraperConfig{DelayMS: 300, RetryDelayMS: 1000, MaxRetries: 2},
		Location: time.UTC,
	}
}

func siteTransport(t *testing.T) *fakeTransport {
	tr := newFakeTransport()

	tr.page(openListing, auctionPage(t, 3, "classic-cars-1", "tools-2"))
	tr.page(openListing+"&page=1", auctionPage(t, 3, "classic-cars-1", "tools-2"))
	tr.page(openListing+"&page=2", auctionPage(t, 3, "motorbikes-3"))

	tr.page(closedListing, auctionPage(t, 1, "classic-cars-9"))
	tr.page(closedListing+"&page=1", auctionPage(t, 1, "classic-cars-9"))

	for _, a := range []struct {
		url  string
		lots []string
	}{
		{"https://vavato.com/en/a/classic-cars-1", []string{"l1", "l2"}},
		{"https://vavato.com/en/a/motorbikes-3", []string{"l3"}},
		{"https://vavato.com/en/a/classic-cars-9", []string{"l9"}},
	} {
		tr.page(a.url, lotPage(t, 2, len(a.lots), a.lots...))
		tr.page(a.url+"?page=1", lotPage(t, 2, len(a.lots), a.lots...))
	}
	return tr
}

func TestOrchestrator_RunProducesFourTables(t *testing.T) {
	t.Parallel()

	tr := siteTransport(t)
	store := &memoryStore{}
	exporter := &captureExporter{}
	sleeps := &sleepRecorder{}

	o := NewOrchestrator(testConfig(), tr)
	o.SetStore(store)
	o.SetExporter(exporter)
	o.SetSleep(sleeps.sleep)

	res, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.OpenAuctions, 2)
	assert.Equal(t, "https://vavato.com/en/a/classic-cars-1", res.OpenAuctions[0].URL)
	assert.Equal(t, "https://vavato.com/en/a/motorbikes-3", res.OpenAuctions[1].URL)
	require.Len(t, res.ClosedAuctions, 1)
	assert.Len(t, res.OpenAuctionLots, 3)
	require.Len(t, res.ClosedAuctionLots, 1)
	assert.Equal(t, "https://vavato.com/en/l/l9", res.ClosedAuctionLots[0].VehicleURL)

	// Phases run strictly in order: both auction listings, then lots.
	reqs := tr.requested()
	lastAuctionReq, firstLotReq := -1, len(reqs)
	for i, r := range reqs {
		if strings.Contains(r, "/en/auctions?") {
			lastAuctionReq = i
		} else if i < firstLotReq {
			firstLotReq = i
		}
	}
	assert.Less(t, lastAuctionReq, firstLotReq)

	// Every request waits the configured delay first.
	assert.Len(t, sleeps.recorded(), len(reqs))

	assert.Equal(t, 1, exporter.calls)
	assert.Same(t, res, exporter.result)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, exporter.runID, run.RunID)
	assert.Equal(t, 2, run.OpenAuctions)
	assert.Equal(t, 1, run.ClosedAuctions)
	assert.Equal(t, 3, run.OpenAuctionLots)
	assert.Equal(t, 1, run.ClosedAuctionLots)
	assert.Equal(t, "output/UpcomingAuction_20231114_221320.xlsx", run.OutputPath)
	assert.NotNil(t, run.FinishedAt)
	assert.NotEmpty(t, store.logs)
}

func TestOrchestrator_FatalBlockSkipsExport(t *testing.T) {
	t.Parallel()

	tr := siteTransport(t)
	tr.responses["https://vavato.com/en/a/motorbikes-3"] = []fakeResponse{blocked}
	store := &memoryStore{}
	exporter := &captureExporter{}

	o := NewOrchestrator(testConfig(), tr)
	o.SetStore(store)
	o.SetExporter(exporter)
	o.SetSleep((&sleepRecorder{}).sleep)

	res, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Zero(t, exporter.calls)
	assert.Len(t, res.OpenAuctionLots, 2)
	assert.Empty(t, res.ClosedAuctionLots)

	require.Len(t, store.runs, 1)
	assert.Equal(t, models.RunStatusFailed, store.runs[0].Status)

	for _, r := range tr.requested() {
		assert.NotContains(t, r, "classic-cars-9?page=", "closed lots must not be scraped after a fatal block")
	}
}

func TestOrchestrator_EachRunGetsFreshBackoff(t *testing.T) {
	t.Parallel()

	tr := siteTransport(t)
	tr.responses[closedListing] = []fakeResponse{blocked, {status: 200, body: auctionPage(t, 1, "classic-cars-9")}}
	sleeps := &sleepRecorder{}

	o := NewOrchestrator(testConfig(), tr)
	o.SetSleep(sleeps.sleep)

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	tr.responses[closedListing] = []fakeResponse{blocked, {status: 200, body: auctionPage(t, 1, "classic-cars-9")}}
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	var backoffs []time.Duration
	for _, d := range sleeps.recorded() {
		if d != 300*time.Millisecond {
			backoffs = append(backoffs, d)
		}
	}
	assert.Equal(t, []time.Duration{time.Second, time.Second}, backoffs)
}

func TestOrchestrator_RunWithoutStoreOrExporter(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(testConfig(), siteTransport(t))
	o.SetSleep((&sleepRecorder{}).sleep)

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Empty())
}
