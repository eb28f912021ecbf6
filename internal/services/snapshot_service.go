package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

// SnapshotService records the daily value of the active collection
type SnapshotService struct {
	store       *database.Store
	collections *CollectionService
	log         *zap.SugaredLogger
	now         func() time.Time
}

func NewSnapshotService(store *database.Store, collections *CollectionService, log *zap.SugaredLogger) *SnapshotService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SnapshotService{
		store:       store,
		collections: collections,
		log:         log,
		now:         time.Now,
	}
}

// Schedule registers a daily snapshot on c.
func (s *SnapshotService) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if _, err := s.TakeSnapshot(ctx); err != nil {
			s.log.Errorf("Snapshot service: failed to take snapshot: %v", err)
		}
	})
	if err == nil {
		s.log.Infof("Snapshot service scheduled: %s", spec)
	}
	return err
}

// TakeSnapshot records today's figures for the active collection, replacing
// an earlier snapshot of the same day.
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (*models.CollectionValueSnapshot, error) {
	view, err := s.collections.View(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	snapshot := &models.CollectionValueSnapshot{
		CollectionID:      view.Collection.ID,
		SnapshotDate:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		TotalCards:        view.Stats.TotalCards,
		UniqueItems:       view.Stats.UniqueItems,
		EstimatedValue:    view.Stats.EstimatedValue,
		MissingPrice:      view.Stats.MissingPrice,
		CompletionPercent: view.Completion.Percent,
		CreatedAt:         now,
	}
	if err := s.store.PutSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	s.log.Infof("Snapshot service: recorded value snapshot for %s (total: €%.2f, cards: %d)",
		snapshot.SnapshotDate.Format("2006-01-02"), snapshot.EstimatedValue, snapshot.TotalCards)
	return snapshot, nil
}

// periodStart maps a history period to its first day. Unknown periods mean
// one month; "all" has no lower bound.
func periodStart(period string, now time.Time) (string, time.Time) {
	switch period {
	case "week":
		return period, now.AddDate(0, 0, -7)
	case "month":
		return period, now.AddDate(0, -1, 0)
	case "3month":
		return period, now.AddDate(0, -3, 0)
	case "year":
		return period, now.AddDate(-1, 0, 0)
	case "all":
		return period, time.Time{}
	default:
		return "month", now.AddDate(0, -1, 0)
	}
}

// GetHistory returns the active collection's snapshots for a period
func (s *SnapshotService) GetHistory(ctx context.Context, period string) (*models.ValueHistoryResponse, error) {
	active, err := s.collections.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, err
	}
	period, since := periodStart(period, s.now().UTC())
	if !since.IsZero() {
		since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	}
	snaps, err := s.store.ListSnapshots(ctx, active.ID, since)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []models.CollectionValueSnapshot{}
	}
	return &models.ValueHistoryResponse{Snapshots: snaps, Period: period}, nil
}
