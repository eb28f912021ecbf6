package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the local record store: get/put/delete/list over app state,
// collections, items, prices and value snapshots. Every put is committed
// before it returns.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GetAppState returns the app state, or a fresh version-1 record when none
// was saved yet.
func (s *Store) GetAppState(ctx context.Context) (*models.AppState, error) {
	var state models.AppState
	err := s.db.WithContext(ctx).First(&state, models.AppStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.AppState{ID: models.AppStateID, Version: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) PutAppState(ctx context.Context, state *models.AppState) error {
	state.ID = models.AppStateID
	if state.Version == 0 {
		state.Version = 1
	}
	return s.db.WithContext(ctx).Save(state).Error
}

// ListCollections returns every collection, oldest first.
func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var collections []models.Collection
	err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&collections).Error
	return collections, err
}

func (s *Store) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var c models.Collection
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) PutCollection(ctx context.Context, c *models.Collection) error {
	return s.db.WithContext(ctx).Save(c).Error
}

// DeleteCollection removes a collection together with its items and value
// history.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", id).Delete(&models.CollectionItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("collection_id = ?", id).Delete(&models.CollectionValueSnapshot{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Collection{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListItems returns the items of a collection sorted by code then id.
func (s *Store) ListItems(ctx context.Context, collectionID string) ([]models.CollectionItem, error) {
	var items []models.CollectionItem
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("card_code ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (s *Store) GetItem(ctx context.Context, id string) (*models.CollectionItem, error) {
	var item models.CollectionItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) PutItem(ctx context.Context, item *models.CollectionItem) error {
	return s.db.WithContext(ctx).Save(item).Error
}

// PutItems upserts a batch of items in one transaction.
func (s *Store) PutItems(ctx context.Context, items []models.CollectionItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(items, 200).Error
	})
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CollectionItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPrices returns every price entry keyed by card code.
func (s *Store) ListPrices(ctx context.Context) (map[string]models.PriceEntry, error) {
	var prices []models.PriceEntry
	if err := s.db.WithContext(ctx).Find(&prices).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.PriceEntry, len(prices))
	for _, p := range prices {
		out[p.CardCode] = p
	}
	return out, nil
}

func (s *Store) GetPrice(ctx context.Context, code string) (*models.PriceEntry, error) {
	var p models.PriceEntry
	if err := s.db.WithContext(ctx).First(&p, "card_code = ?", models.NormalizeCode(code)).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// PutPrice fully replaces the entry for its code.
func (s *Store) PutPrice(ctx context.Context, p *models.PriceEntry) error {
	p.CardCode = models.NormalizeCode(p.CardCode)
	return s.db.WithContext(ctx).Save(p).Error
}

// PutPrices replaces a batch of price entries in one transaction.
func (s *Store) PutPrices(ctx context.Context, prices []models.PriceEntry) error {
	if len(prices) == 0 {
		return nil
	}
	for i := range prices {
		prices[i].CardCode = models.NormalizeCode(prices[i].CardCode)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(prices, 200).Error
	})
}

// PutSnapshot upserts the snapshot for its collection and day.
func (s *Store) PutSnapshot(ctx context.Context, snap *models.CollectionValueSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collection_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_cards", "unique_items", "estimated_value", "missing_price", "completion_percent", "created_at",
		}),
	}).Create(snap).Error
}

// ListSnapshots returns the snapshots of a collection taken on or after
// since, oldest first. A zero since returns all of them.
func (s *Store) ListSnapshots(ctx context.Context, collectionID string, since time.Time) ([]models.CollectionValueSnapshot, error) {
	q := s.db.WithContext(ctx).Where("collection_id = ?", collectionID)
	if !since.IsZero() {
		q = q.Where("snapshot_date >= ?", since)
	}
	var snaps []models.CollectionValueSnapshot
	err := q.Order("snapshot_date ASC").Find(&snaps).Error
	return snaps, err
}
