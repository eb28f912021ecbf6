package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/metrics"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

// ErrScrapeRunning is returned when a run is requested while one is in progress.
var ErrScrapeRunning = errors.New("a price scrape run is already in progress")

// EntryScraper fetches the prices of one catalog entry. Pause spaces two
// consecutive fetches.
type EntryScraper interface {
	Scrape(ctx context.Context, entry models.CatalogEntry) (*ScrapeResult, error)
	Pause(ctx context.Context) error
}

// ScrapeStatus reports the current or last scrape run.
type ScrapeStatus struct {
	Running        bool      `json:"running"`
	LastRunStarted time.Time `json:"last_run_started,omitempty"`
	LastRunEnded   time.Time `json:"last_run_ended,omitempty"`
	LastRunError   string    `json:"last_run_error,omitempty"`
	Queued         int       `json:"queued"`
	Processed      int       `json:"processed"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	TTLHours       float64   `json:"ttl_hours"`
	Schedule       string    `json:"schedule,omitempty"`
	NextRun        time.Time `json:"next_run,omitempty"`
}

// ScrapeWorker refreshes stale overlay prices one card at a time. Each
// card's outcome is stored before the next card is fetched, and runs never
// overlap.
type ScrapeWorker struct {
	catalog *CatalogService
	prices  *PriceService
	scraper EntryScraper
	ttl     time.Duration
	log     *zap.SugaredLogger

	mu      sync.RWMutex
	status  ScrapeStatus
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewScrapeWorker(catalog *CatalogService, prices *PriceService, s EntryScraper, ttl time.Duration, log *zap.SugaredLogger) *ScrapeWorker {
	if ttl <= 0 {
		ttl = PriceStalenessThreshold
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ScrapeWorker{
		catalog: catalog,
		prices:  prices,
		scraper: s,
		ttl:     ttl,
		log:     log,
		status:  ScrapeStatus{TTLHours: ttl.Hours()},
	}
}

// Schedule registers the worker on c with a cron spec. Runs started by the
// scheduler while another run is active are skipped.
func (w *ScrapeWorker) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	id, err := c.AddFunc(spec, func() {
		if _, err := w.Run(ctx); err != nil && !errors.Is(err, ErrScrapeRunning) {
			w.log.Errorf("Scheduled price scrape failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cron = c
	w.entryID = id
	w.status.Schedule = spec
	w.mu.Unlock()
	w.log.Infof("Price scrape scheduled: %s", spec)
	return nil
}

// Start launches a run in the background and returns immediately.
func (w *ScrapeWorker) Start(ctx context.Context) error {
	if !w.begin() {
		return ErrScrapeRunning
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Errorf("PANIC in price scrape run: %v", r)
				w.finish(errors.New("run panicked"))
			}
		}()
		_, _ = w.run(ctx)
	}()
	return nil
}

// Run performs a complete run and returns its final status.
func (w *ScrapeWorker) Run(ctx context.Context) (ScrapeStatus, error) {
	if !w.begin() {
		return w.GetStatus(), ErrScrapeRunning
	}
	return w.run(ctx)
}

func (w *ScrapeWorker) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.Running {
		return false
	}
	w.status.Running = true
	w.status.LastRunStarted = time.Now()
	w.status.LastRunError = ""
	w.status.Queued, w.status.Processed, w.status.Succeeded, w.status.Failed = 0, 0, 0, 0
	return true
}

func (w *ScrapeWorker) finish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Running = false
	w.status.LastRunEnded = time.Now()
	if err != nil {
		w.status.LastRunError = err.Error()
	}
	metrics.PriceQueueSize.Set(0)
}

func (w *ScrapeWorker) run(ctx context.Context) (status ScrapeStatus, err error) {
	start := time.Now()
	defer func() {
		w.finish(err)
		metrics.PriceRunDuration.Observe(time.Since(start).Seconds())
		status = w.GetStatus()
	}()

	cat, err := w.catalog.Load(ctx)
	if err != nil {
		return status, err
	}
	queue, err := w.prices.StaleEntries(ctx, cat, w.ttl)
	if err != nil {
		return status, err
	}

	w.mu.Lock()
	w.status.Queued = len(queue)
	w.mu.Unlock()
	metrics.PriceQueueSize.Set(float64(len(queue)))
	w.log.Infof("Price scrape: catalog %d | to fetch %d (TTL %s)", cat.Len(), len(queue), w.ttl)

	for i, entry := range queue {
		if err := ctx.Err(); err != nil {
			return status, err
		}

		result, scrapeErr := w.scraper.Scrape(ctx, entry)
		url := ""
		if result != nil {
			url = result.URL
		}
		if scrapeErr != nil {
			if err := w.prices.RecordFailure(ctx, entry.Code, url, scrapeErr); err != nil {
				return status, err
			}
			metrics.PriceScrapesTotal.WithLabelValues("failed").Inc()
			w.log.Warnf("Price scrape %s failed: %v", entry.Code, scrapeErr)
		} else {
			if err := w.prices.RecordSuccess(ctx, entry.Code, result); err != nil {
				return status, err
			}
			metrics.PriceScrapesTotal.WithLabelValues("success").Inc()
			w.log.Debugf("Price scrape %s ok", entry.Code)
		}

		w.mu.Lock()
		w.status.Processed++
		if scrapeErr != nil {
			w.status.Failed++
		} else {
			w.status.Succeeded++
		}
		w.mu.Unlock()
		metrics.PriceQueueSize.Set(float64(len(queue) - i - 1))

		if i < len(queue)-1 {
			if err := w.scraper.Pause(ctx); err != nil {
				return status, err
			}
		}
	}

	s := w.GetStatus()
	w.log.Infof("Price scrape done: %d ok, %d failed", s.Succeeded, s.Failed)
	return status, nil
}

// GetStatus returns a snapshot of the worker status.
func (w *ScrapeWorker) GetStatus() ScrapeStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.status
	if w.cron != nil {
		s.NextRun = w.cron.Entry(w.entryID).Next
	}
	return s
}
