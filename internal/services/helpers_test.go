package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

// testEntries is a small catalog: OP01 has 5 cards, ST01 has 2.
func testEntries() []models.CatalogEntry {
	return []models.CatalogEntry{
		{Code: "OP01-001", Name: "Roronoa Zoro", Set: "OP01", SetName: "Romance Dawn", Type: "Leader", Traits: []string{"Straw Hat Crew"}},
		{Code: "OP01-002", Name: "Trafalgar Law", Set: "OP01", SetName: "Romance Dawn", Type: "Leader"},
		{Code: "OP01-003", Name: "Monkey.D.Luffy", Set: "OP01", SetName: "Romance Dawn", Type: "Leader", MarketPrice: floatPtr(4)},
		{Code: "OP01-004", Name: "Usopp", Set: "OP01", Type: "Character"},
		{Code: "OP01-005", Name: "Uta", Set: "OP01", Type: "Character"},
		{Code: "ST01-001", Name: "Monkey.D.Luffy", Set: "ST01", SetName: "Straw Hat Crew", Type: "Leader"},
		{Code: "ST01-002", Name: "Usopp", Set: "ST01", Type: "Character", Traits: []string{"Straw Hat Crew"}},
	}
}

func writeCatalog(t *testing.T, entries []models.CatalogEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	return database.NewStore(db)
}

type testEnv struct {
	store       *database.Store
	catalog     *CatalogService
	collections *CollectionService
	prices      *PriceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t)
	cat := NewCatalogService(writeCatalog(t, testEntries()), nil)
	return &testEnv{
		store:       store,
		catalog:     cat,
		collections: NewCollectionService(store, cat, nil),
		prices:      NewPriceService(store, nil),
	}
}
