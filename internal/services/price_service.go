package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/metrics"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

const (
	// PriceStalenessThreshold is how old a price can be before it's considered stale
	PriceStalenessThreshold = 24 * time.Hour
)

// PriceService maintains the price overlay keyed by card code.
type PriceService struct {
	store *database.Store
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewPriceService(store *database.Store, log *zap.SugaredLogger) *PriceService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PriceService{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetPrice returns the overlay entry for code, or nil when there is none.
func (s *PriceService) GetPrice(ctx context.Context, code string) (*models.PriceEntry, error) {
	p, err := s.store.GetPrice(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// ImportCSV replaces the overlay entry of every code in a price CSV.
func (s *PriceService) ImportCSV(ctx context.Context, data []byte) (*models.ImportResult, error) {
	rows, err := ParsePricesCSV(data, s.now())
	if err != nil {
		metrics.ImportRowsTotal.WithLabelValues("prices", "rejected").Inc()
		return &models.ImportResult{Status: "Price import failed.", Errors: []string{err.Error()}}, err
	}
	if len(rows) == 0 {
		return &models.ImportResult{Status: "Price CSV is empty or has no valid rows."}, nil
	}

	if err := s.store.PutPrices(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to save prices: %w", err)
	}
	metrics.ImportRowsTotal.WithLabelValues("prices", "imported").Add(float64(len(rows)))
	s.log.Infof("Imported %d price rows", len(rows))
	return &models.ImportResult{
		Status:   fmt.Sprintf("Prices imported: %d rows.", len(rows)),
		Imported: len(rows),
	}, nil
}

// isFresh reports whether the last successful fetch is younger than ttl.
func isFresh(p *models.PriceEntry, ttl time.Duration, now time.Time) bool {
	if p == nil || p.UpdatedAt.IsZero() || !p.HasPrice() {
		return false
	}
	return now.Sub(p.UpdatedAt) < ttl
}

// StaleEntries returns the catalog entries whose price is missing or older
// than ttl, in catalog order.
func (s *PriceService) StaleEntries(ctx context.Context, cat *Catalog, ttl time.Duration) ([]models.CatalogEntry, error) {
	if ttl <= 0 {
		ttl = PriceStalenessThreshold
	}
	prices, err := s.store.ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []models.CatalogEntry
	for _, e := range cat.Entries() {
		p, ok := prices[models.NormalizeCode(e.Code)]
		if ok && isFresh(&p, ttl, now) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RecordSuccess replaces the entry for code with freshly scraped figures and
// clears any previous error.
func (s *PriceService) RecordSuccess(ctx context.Context, code string, result *ScrapeResult) error {
	entry := &models.PriceEntry{
		CardCode:  code,
		TrendEur:  result.TrendEur,
		Avg30Eur:  result.Avg30Eur,
		UpdatedAt: s.now(),
		URL:       result.URL,
	}
	return s.store.PutPrice(ctx, entry)
}

// RecordFailure keeps the previous figures of code and notes the error.
func (s *PriceService) RecordFailure(ctx context.Context, code, url string, cause error) error {
	entry, err := s.store.GetPrice(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		entry = &models.PriceEntry{CardCode: code}
	} else if err != nil {
		return err
	}
	now := s.now()
	entry.LastError = cause.Error()
	entry.LastErrorAt = &now
	if url != "" {
		entry.URL = url
	}
	return s.store.PutPrice(ctx, entry)
}
