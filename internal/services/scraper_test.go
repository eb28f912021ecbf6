package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

func TestParseEuroNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"2.608,15 €", floatPtr(2608.15)},
		{"0,42 €", floatPtr(0.42)},
		{"12,00€", floatPtr(12)},
		{" 1 234,50 € ", floatPtr(1234.5)},
		{"", nil},
		{"€", nil},
		{"n/a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseEuroNumber(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestExtractPrices(t *testing.T) {
	text := "Available items 120\nFrom 0,02 €\nPrice Trend 0,35 €\n30-days average price 0,41 €\n7-days average price 0,38 €"
	trend, avg := ExtractPrices(text)
	require.NotNil(t, trend)
	require.NotNil(t, avg)
	assert.InDelta(t, 0.35, *trend, 1e-9)
	assert.InDelta(t, 0.41, *avg, 1e-9)

	trend, avg = ExtractPrices("price trend 1.024,00 €")
	require.NotNil(t, trend)
	assert.InDelta(t, 1024.0, *trend, 1e-9)
	assert.Nil(t, avg)

	trend, avg = ExtractPrices("No results")
	assert.Nil(t, trend)
	assert.Nil(t, avg)
}

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL("https://shop.test/search?q=%s", "Monkey.D.Luffy", "OP01-003")
	assert.Equal(t, "https://shop.test/search?q=Monkey.D.Luffy+OP01-003", got)

	got = BuildSearchURL("https://shop.test/search?q=%s", "", "OP01-003")
	assert.Equal(t, "https://shop.test/search?q=OP01-003", got)
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, pageURL)
	for needle, text := range f.pages {
		if strings.Contains(pageURL, needle) {
			return text, pageURL + "&final=1", nil
		}
	}
	return "", "", errors.New("navigation failed")
}

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{SearchURL: "https://shop.test/search?q=%s"}
}

func TestPriceScraperScrape(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{pages: map[string]string{
		"OP01-001": "Price Trend 1,50 € 30-days average price 1,20 €",
		"OP01-002": "Nothing to see",
	}}
	s := NewPriceScraper(fetcher, testScraperConfig())

	res, err := s.Scrape(ctx, models.CatalogEntry{Code: "OP01-001", Name: "Zoro"})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, *res.TrendEur, 1e-9)
	assert.InDelta(t, 1.2, *res.Avg30Eur, 1e-9)
	assert.Equal(t, "https://shop.test/search?q=Zoro+OP01-001&final=1", res.URL)

	res, err = s.Scrape(ctx, models.CatalogEntry{Code: "OP01-002", Name: "Law"})
	assert.ErrorIs(t, err, ErrNoPricesFound)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.URL)

	res, err = s.Scrape(ctx, models.CatalogEntry{Code: "OP01-009", Name: "Nobody"})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "https://shop.test/search?q=Nobody+OP01-009", res.URL, "the requested URL is kept on failure")
}

func TestPriceScraperDelay(t *testing.T) {
	cfg := testScraperConfig()
	cfg.MinDelay = 10 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond
	s := NewPriceScraper(&fakeFetcher{}, cfg)

	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Pause(context.Background()))
	}
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, cfg.MinDelay)
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}

	cfg.MaxDelay = cfg.MinDelay
	fixed := NewPriceScraper(&fakeFetcher{}, cfg)
	assert.Equal(t, cfg.MinDelay, fixed.randomDelay())
}

type fakeEntryScraper struct {
	mu      sync.Mutex
	results map[string]*ScrapeResult
	calls   []string
	pauses  int
	block   chan struct{}
}

func (f *fakeEntryScraper) Scrape(_ context.Context, entry models.CatalogEntry) (*ScrapeResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, entry.Code)
	if res, ok := f.results[entry.Code]; ok {
		return res, nil
	}
	return &ScrapeResult{URL: "https://shop.test/" + entry.Code}, ErrNoPricesFound
}

func (f *fakeEntryScraper) Pause(context.Context) error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return nil
}

func TestScrapeWorkerRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.store.PutPrice(ctx, &models.PriceEntry{
		CardCode: "OP01-002", TrendEur: floatPtr(9), UpdatedAt: time.Now().UTC().Add(-72 * time.Hour),
	}))
	require.NoError(t, env.store.PutPrice(ctx, &models.PriceEntry{
		CardCode: "ST01-001", TrendEur: floatPtr(2), UpdatedAt: time.Now().UTC(),
	}))

	fake := &fakeEntryScraper{results: map[string]*ScrapeResult{
		"OP01-001": {TrendEur: floatPtr(1.5), URL: "https://shop.test/OP01-001"},
		"OP01-003": {Avg30Eur: floatPtr(4.2), URL: "https://shop.test/OP01-003"},
	}}
	w := NewScrapeWorker(env.catalog, env.prices, fake, 24*time.Hour, nil)

	status, err := w.Run(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, 6, status.Queued, "the fresh ST01-001 price is skipped")
	assert.Equal(t, 6, status.Processed)
	assert.Equal(t, 2, status.Succeeded)
	assert.Equal(t, 4, status.Failed)
	assert.Equal(t, 24.0, status.TTLHours)
	assert.Equal(t, 5, fake.pauses, "no pause after the last card")
	assert.NotContains(t, fake.calls, "ST01-001")

	ok, err := env.prices.GetPrice(ctx, "OP01-001")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, *ok.TrendEur, 1e-9)

	kept, err := env.prices.GetPrice(ctx, "OP01-002")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, *kept.TrendEur, 1e-9, "a failed scrape keeps the last figures")
	assert.Equal(t, ErrNoPricesFound.Error(), kept.LastError)
	assert.Equal(t, "https://shop.test/OP01-002", kept.URL)

	// successes are fresh now, failures are retried on the next run
	fake.calls = nil
	status, err = w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Queued)
	assert.NotContains(t, fake.calls, "OP01-001")
}

func TestScrapeWorkerRefusesOverlappingRuns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	fake := &fakeEntryScraper{block: make(chan struct{})}
	w := NewScrapeWorker(env.catalog, env.prices, fake, time.Hour, nil)

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.GetStatus().Running)

	_, err := w.Run(ctx)
	assert.ErrorIs(t, err, ErrScrapeRunning)
	assert.ErrorIs(t, w.Start(ctx), ErrScrapeRunning)

	close(fake.block)
	assert.Eventually(t, func() bool { return !w.GetStatus().Running }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 7, w.GetStatus().Failed)
}
