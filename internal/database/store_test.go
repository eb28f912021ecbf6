package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	return NewStore(db)
}

func floatPtr(f float64) *float64 { return &f }

func TestAppState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	state, err := s.GetAppState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
	assert.Empty(t, state.ActiveCollectionID)

	state.ActiveCollectionID = "c1"
	require.NoError(t, s.PutAppState(ctx, state))

	got, err := s.GetAppState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ActiveCollectionID)
}

func TestCollectionsAndItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutCollection(ctx, &models.Collection{ID: "c1", Name: "Main", Game: models.DefaultGame, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.PutCollection(ctx, &models.Collection{ID: "c2", Name: "Trade", Game: models.DefaultGame, CreatedAt: now.Add(time.Second), UpdatedAt: now}))

	collections, err := s.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "c1", collections[0].ID)

	items := []models.CollectionItem{
		{ID: "i2", CollectionID: "c1", CardCode: "OP01-002", Qty: 1, Variant: models.VariantNormal, Condition: models.ConditionNM, Language: models.LanguageEN, CreatedAt: now, UpdatedAt: now},
		{ID: "i1", CollectionID: "c1", CardCode: "OP01-001", Qty: 2, Variant: models.VariantNormal, Condition: models.ConditionNM, Language: models.LanguageEN, CreatedAt: now, UpdatedAt: now},
		{ID: "i3", CollectionID: "c2", CardCode: "OP01-001", Qty: 1, Variant: models.VariantAlt, Condition: models.ConditionLP, Language: models.LanguageJP, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, s.PutItems(ctx, items))

	got, err := s.ListItems(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "OP01-001", got[0].CardCode)

	// upsert replaces the stored qty
	items[1].Qty = 7
	require.NoError(t, s.PutItems(ctx, items[1:2]))
	item, err := s.GetItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Qty)

	require.NoError(t, s.DeleteItem(ctx, "i2"))
	assert.ErrorIs(t, s.DeleteItem(ctx, "i2"), ErrNotFound)
	_, err = s.GetItem(ctx, "i2")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteCollection(ctx, "c1"))
	got, err = s.ListItems(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got, "items cascade with their collection")
	_, err = s.GetCollection(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCollection(ctx, "missing"), ErrNotFound)

	other, err := s.ListItems(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestPrices(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutPrices(ctx, []models.PriceEntry{
		{CardCode: "op01-001", TrendEur: floatPtr(1.5), Avg30Eur: floatPtr(1.2), UpdatedAt: now},
		{CardCode: "OP01-002", TrendEur: floatPtr(3), UpdatedAt: now},
	}))

	// a later entry fully replaces the earlier one
	require.NoError(t, s.PutPrice(ctx, &models.PriceEntry{CardCode: "OP01-001", Avg30Eur: floatPtr(2), UpdatedAt: now}))

	p, err := s.GetPrice(ctx, "op01-001")
	require.NoError(t, err)
	assert.Nil(t, p.TrendEur)
	require.NotNil(t, p.Avg30Eur)
	assert.InDelta(t, 2.0, *p.Avg30Eur, 0.0001)

	all, err := s.ListPrices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "OP01-002")

	_, err = s.GetPrice(ctx, "OP99-001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutSnapshot(ctx, &models.CollectionValueSnapshot{CollectionID: "c1", SnapshotDate: day, EstimatedValue: 10}))
	require.NoError(t, s.PutSnapshot(ctx, &models.CollectionValueSnapshot{CollectionID: "c1", SnapshotDate: day, EstimatedValue: 12}))
	require.NoError(t, s.PutSnapshot(ctx, &models.CollectionValueSnapshot{CollectionID: "c1", SnapshotDate: day.AddDate(0, 0, -10), EstimatedValue: 5}))

	all, err := s.ListSnapshots(ctx, "c1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.InDelta(t, 5.0, all[0].EstimatedValue, 0.0001)
	assert.InDelta(t, 12.0, all[1].EstimatedValue, 0.0001, "same day upserts")

	recent, err := s.ListSnapshots(ctx, "c1", day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestMigrationsFoldDuplicates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := Open(path, nil)
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	legacy := []models.CollectionItem{
		{ID: "a", CollectionID: "c1", CardCode: " op01-001", Qty: 2, Variant: "normal", Condition: "NM", Language: "EN", CreatedAt: t0, UpdatedAt: t0},
		{ID: "b", CollectionID: "c1", CardCode: "OP01-001", Qty: 3, Variant: "normal", Condition: "NM", Language: "EN", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour)},
		{ID: "c", CollectionID: "c2", CardCode: "OP01-001", Qty: 1, Variant: "normal", Condition: "NM", Language: "EN", CreatedAt: t0, UpdatedAt: t0},
		{ID: "d", CollectionID: "c1", CardCode: "OP01-002", Qty: 0, Variant: "normal", Condition: "NM", Language: "EN", CreatedAt: t0, UpdatedAt: t0},
	}
	require.NoError(t, db.Create(&legacy).Error)
	require.NoError(t, db.Exec(`UPDATE collection_items SET variant = '' WHERE id = 'c'`).Error)

	require.NoError(t, RunMigrations(db, nil))

	s := NewStore(db)
	items, err := s.ListItems(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "OP01-001", items[0].CardCode)
	assert.Equal(t, 5, items[0].Qty)

	other, err := s.ListItems(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, models.VariantNormal, other[0].Variant)
}

func TestMissingRowsAreNotLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.DebugLevel)
	db, err := Open(filepath.Join(t.TempDir(), "quiet.db"), zap.New(core).Sugar())
	require.NoError(t, err)
	s := NewStore(db)

	_, err = s.GetAppState(ctx)
	require.NoError(t, err)
	_, err = s.GetPrice(ctx, "OP01-001")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCollection(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())
}
