package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

// ErrNoPricesFound is recorded when a page carries neither price figure.
var ErrNoPricesFound = errors.New("no prices found")

// PageFetcher loads a page and returns its visible text and final URL.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (text string, finalURL string, err error)
}

// ChromeFetcher renders pages in a headless Chrome driven by chromedp.
type ChromeFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
}

// NewChromeFetcher starts a browser allocator. Close releases it.
func NewChromeFetcher(userAgent string, timeout time.Duration) *ChromeFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeFetcher{allocCtx: allocCtx, cancelAlloc: cancel, timeout: timeout}
}

func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (string, string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	// stop the tab when the caller gives up
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var text, finalURL string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Text("body", &text, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", pageURL, err
	}
	return text, finalURL, nil
}

func (f *ChromeFetcher) Close() {
	f.cancelAlloc()
}

// ScrapeResult holds the figures read from one product page.
type ScrapeResult struct {
	TrendEur *float64
	Avg30Eur *float64
	URL      string
}

var (
	trendPattern = regexp.MustCompile(`(?i)Price Trend\s*([\d.,]+)\s*€`)
	avg30Pattern = regexp.MustCompile(`(?i)30-days average price\s*([\d.,]+)\s*€`)
)

// ParseEuroNumber reads a European formatted amount such as "2.608,15 €".
func ParseEuroNumber(s string) *float64 {
	cleaned := strings.Join(strings.Fields(s), "")
	cleaned = strings.Replace(cleaned, "€", "", 1)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ExtractPrices finds the labelled trend and 30-day average figures in page text.
func ExtractPrices(text string) (trend, avg30 *float64) {
	if m := trendPattern.FindStringSubmatch(text); m != nil {
		trend = ParseEuroNumber(m[1])
	}
	if m := avg30Pattern.FindStringSubmatch(text); m != nil {
		avg30 = ParseEuroNumber(m[1])
	}
	return trend, avg30
}

// BuildSearchURL fills the search template with "name code".
func BuildSearchURL(template, name, code string) string {
	q := strings.TrimSpace(strings.TrimSpace(name) + " " + code)
	return fmt.Sprintf(template, url.QueryEscape(q))
}

// PriceScraper fetches one product page at a time, pacing requests with a
// token bucket plus a randomized delay.
type PriceScraper struct {
	fetcher   PageFetcher
	searchURL string
	minDelay  time.Duration
	maxDelay  time.Duration
	limiter   *rate.Limiter

	randMu sync.Mutex
	rand   *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPriceScraper(fetcher PageFetcher, cfg config.ScraperConfig) *PriceScraper {
	return &PriceScraper{
		fetcher:   fetcher,
		searchURL: cfg.SearchURL,
		minDelay:  cfg.MinDelay,
		maxDelay:  cfg.MaxDelay,
		// one request in flight, at most one per minDelay
		limiter: rate.NewLimiter(rate.Every(cfg.MinDelay), 1),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scrape fetches the product page of one catalog entry. A page without
// either figure is reported as ErrNoPricesFound. The returned result always
// carries the URL that was visited.
func (s *PriceScraper) Scrape(ctx context.Context, entry models.CatalogEntry) (*ScrapeResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pageURL := BuildSearchURL(s.searchURL, entry.Name, entry.Code)
	text, finalURL, err := s.fetcher.Fetch(ctx, pageURL)
	if finalURL == "" {
		finalURL = pageURL
	}
	result := &ScrapeResult{URL: finalURL}
	if err != nil {
		return result, err
	}
	result.TrendEur, result.Avg30Eur = ExtractPrices(text)
	if result.TrendEur == nil && result.Avg30Eur == nil {
		return result, ErrNoPricesFound
	}
	return result, nil
}

// Pause waits a random delay in [minDelay, maxDelay] between two requests.
func (s *PriceScraper) Pause(ctx context.Context) error {
	return s.sleep(ctx, s.randomDelay())
}

func (s *PriceScraper) randomDelay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.minDelay + time.Duration(s.rand.Int63n(int64(s.maxDelay-s.minDelay)+1))
}
