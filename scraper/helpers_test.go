package scraper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeTransport serves canned responses per URL. When a URL has several
// responses they are served in order and the last one repeats.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	requests  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{responses: make(map[string][]fakeResponse)}
}

func (f *fakeTransport) on(url string, responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = append(f.responses[url], responses...)
}

func (f *fakeTransport) page(url, body string) {
	f.on(url, fakeResponse{status: 200, body: body})
}

func (f *fakeTransport) Get(ctx context.Context, url string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)

	queue := f.responses[url]
	if len(queue) == 0 {
		return 404, "not found", nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[url] = queue[1:]
	}
	return r.status, r.body, r.err
}

func (f *fakeTransport) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// sleepRecorder stands in for real sleeps and remembers every wait.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// nextDataPage wraps pageProps the way the site embeds its Next.js data.
func nextDataPage(t *testing.T, pageProps map[string]any) string {
	t.Helper()
	doc := map[string]any{"props": map[string]any{"pageProps": pageProps}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	return `<html><head><title>Vavato</title></head><body><div id="__next"></div>` +
		`<script id="__NEXT_DATA__" type="application/json">` + string(data) + `</script></body></html>`
}

func auctionEntry(slug string, cities ...string) map[string]any {
	days := make([]map[string]any, 0, len(cities))
	for _, c := range cities {
		days = append(days, map[string]any{"city": c})
	}
	return map[string]any{
		"name":           "Auction " + slug,
		"startDate":      1700000000,
		"endDate":        1700600000,
		"collectionDays": days,
		"urlSlug":        slug,
	}
}

func auctionPage(t *testing.T, totalSize int, slugs ...string) string {
	t.Helper()
	results := make([]map[string]any, 0, len(slugs))
	for _, s := range slugs {
		results = append(results, auctionEntry(s, "Ghent"))
	}
	return nextDataPage(t, map[string]any{
		"auctionList": map[string]any{"results": results, "totalSize": totalSize},
	})
}

func lotPage(t *testing.T, pageSize, totalSize int, slugs ...string) string {
	t.Helper()
	results := make([]map[string]any, 0, len(slugs))
	for _, s := range slugs {
		results = append(results, map[string]any{"urlSlug": s})
	}
	return nextDataPage(t, map[string]any{
		"lots": map[string]any{"results": results, "pageSize": pageSize, "totalSize": totalSize},
	})
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}
