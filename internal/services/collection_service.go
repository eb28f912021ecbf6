package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/metrics"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

const (
	DefaultCollectionName = "My collection"
	// invalidCodeSample is how many unknown codes an import rejection lists
	invalidCodeSample = 20
)

// CollectionService owns collections and their stock lines. Mutations are
// serialized and every one returns the refreshed view of the active
// collection.
type CollectionService struct {
	store   *database.Store
	catalog *CatalogService
	log     *zap.SugaredLogger

	mu  sync.Mutex
	now func() time.Time
}

func NewCollectionService(store *database.Store, catalog *CatalogService, log *zap.SugaredLogger) *CollectionService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CollectionService{
		store:   store,
		catalog: catalog,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EnsureDefaultCollection returns the active collection. A stale active id
// falls back to the oldest collection; with no collections at all a default
// one is created. The resolved id is saved back to the app state.
func (s *CollectionService) EnsureDefaultCollection(ctx context.Context) (*models.Collection, error) {
	state, err := s.store.GetAppState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read app state: %w", err)
	}

	if state.ActiveCollectionID != "" {
		c, err := s.store.GetCollection(ctx, state.ActiveCollectionID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
	}

	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var active *models.Collection
	if len(collections) > 0 {
		active = &collections[0]
	} else {
		ts := s.now()
		active = &models.Collection{
			ID:        uuid.NewString(),
			Name:      DefaultCollectionName,
			Game:      models.DefaultGame,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := s.store.PutCollection(ctx, active); err != nil {
			return nil, fmt.Errorf("failed to create default collection: %w", err)
		}
		s.log.Infof("Created default collection %s", active.ID)
	}

	state.ActiveCollectionID = active.ID
	if err := s.store.PutAppState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save app state: %w", err)
	}
	return active, nil
}

// ListCollections returns every collection and the active id.
func (s *CollectionService) ListCollections(ctx context.Context) ([]models.Collection, string, error) {
	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, "", err
	}
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, "", err
	}
	return collections, active.ID, nil
}

func (s *CollectionService) CreateCollection(ctx context.Context, name string) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCollectionName
	}
	ts := s.now()
	c := &models.Collection{
		ID:        uuid.NewString(),
		Name:      name,
		Game:      models.DefaultGame,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.store.PutCollection(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CollectionService) SetActiveCollection(ctx context.Context, id string) (*models.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}
	state, err := s.store.GetAppState(ctx)
	if err != nil {
		return nil, err
	}
	state.ActiveCollectionID = c.ID
	if err := s.store.PutAppState(ctx, state); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CollectionService) RenameCollection(ctx context.Context, id, name string) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection name is required")
	}
	c, err := s.store.GetCollection(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.UpdatedAt = s.now()
	if err := s.store.PutCollection(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCollection removes a collection and its items. Deleting the active
// collection activates another one, creating a default if none is left.
func (s *CollectionService) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.DeleteCollection(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrCollectionNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.EnsureDefaultCollection(ctx)
	return err
}

// View builds the aggregate view of the active collection. A non-empty query
// narrows items and groups by code or name; stats and completion always
// cover the whole collection.
func (s *CollectionService) View(ctx context.Context, query string) (*models.CollectionView, error) {
	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrichedItems(ctx, active.ID, cat)
	if err != nil {
		return nil, err
	}

	filtered := FilterItems(enriched, query)
	view := &models.CollectionView{
		Collection: *active,
		Items:      filtered,
		Groups:     GroupBySet(filtered, cat),
		Stats:      ComputeStats(enriched),
		Completion: ComputeCompletion(enriched, cat),
		Query:      strings.TrimSpace(query),
	}
	if view.Items == nil {
		view.Items = []models.EnrichedItem{}
	}

	metrics.CollectionCardsTotal.Set(float64(view.Stats.TotalCards))
	metrics.CollectionValueEur.Set(view.Stats.EstimatedValue)
	metrics.CollectionCompletionPercent.Set(view.Completion.Percent)
	return view, nil
}

func (s *CollectionService) enrichedItems(ctx context.Context, collectionID string, cat *Catalog) ([]models.EnrichedItem, error) {
	items, err := s.store.ListItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	prices, err := s.store.ListPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	return Enrich(items, cat, prices), nil
}

// MissingForSet lists the catalog cards of a set not owned by the active collection.
func (s *CollectionService) MissingForSet(ctx context.Context, set, query string) ([]models.CatalogEntry, error) {
	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrichedItems(ctx, active.ID, cat)
	if err != nil {
		return nil, err
	}
	return MissingForSet(cat, set, enriched, query), nil
}

// Binder lays out one set of the catalog against the active collection.
func (s *CollectionService) Binder(ctx context.Context, set, query string) (*models.BinderView, error) {
	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrichedItems(ctx, active.ID, cat)
	if err != nil {
		return nil, err
	}
	view := BuildBinder(cat, set, enriched, query)
	return &view, nil
}

// AddCard adds qty copies to the matching stock line of the active
// collection, creating it when absent.
func (s *CollectionService) AddCard(ctx context.Context, req models.AddCardRequest) (*models.CollectionView, error) {
	code := models.NormalizeCode(req.Code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	if req.Qty < 0 {
		return nil, ErrInvalidQuantity
	}

	s.mu.Lock()
	err := s.addCard(ctx, models.ImportRow{
		Code:      code,
		Qty:       req.Qty,
		Variant:   models.NormalizeVariant(string(req.Variant)),
		Condition: models.NormalizeCondition(string(req.Condition)),
		Language:  models.NormalizeLanguage(string(req.Language)),
	}, strings.TrimSpace(req.Note))
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.View(ctx, "")
}

func (s *CollectionService) addCard(ctx context.Context, row models.ImportRow, note string) error {
	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return err
	}
	existing, err := s.store.ListItems(ctx, active.ID)
	if err != nil {
		return err
	}
	plan := PlanImport(existing, []models.ImportRow{row}, active.ID, s.now(), uuid.NewString)
	if note != "" {
		for i := range plan.Upserts {
			plan.Upserts[i].Note = note
		}
	}
	if err := s.store.PutItems(ctx, plan.Upserts); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	s.log.Infof("Added %d x %s to collection %s", row.Qty, row.Code, active.ID)
	return nil
}

// AdjustQuantity changes an item's quantity by delta. A resulting quantity
// of zero or less deletes the item.
func (s *CollectionService) AdjustQuantity(ctx context.Context, itemID string, delta int) (*models.CollectionView, error) {
	s.mu.Lock()
	err := s.adjust(ctx, itemID, delta)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.View(ctx, "")
}

func (s *CollectionService) adjust(ctx context.Context, itemID string, delta int) error {
	item, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	newQty := item.Qty + delta
	if newQty <= 0 {
		return s.store.DeleteItem(ctx, itemID)
	}
	item.Qty = newQty
	item.UpdatedAt = s.now()
	return s.store.PutItem(ctx, item)
}

// DeleteItem removes a stock line outright.
func (s *CollectionService) DeleteItem(ctx context.Context, itemID string) (*models.CollectionView, error) {
	s.mu.Lock()
	err := s.store.DeleteItem(ctx, itemID)
	s.mu.Unlock()
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.View(ctx, "")
}

// ImportCSV validates every row against the catalog before writing anything.
// Any unknown code rejects the whole import; otherwise the rows are merged
// into one snapshot of the active collection's items and written in a
// single batch.
func (s *CollectionService) ImportCSV(ctx context.Context, data []byte) (*models.ImportResult, error) {
	rows, err := ParseCollectionCSV(data)
	if err != nil {
		metrics.ImportRowsTotal.WithLabelValues("collection", "rejected").Inc()
		return &models.ImportResult{Status: "Import failed.", Errors: []string{err.Error()}}, err
	}
	if len(rows) == 0 {
		return &models.ImportResult{Status: "CSV is empty or has no valid rows."}, nil
	}

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	var bad []string
	seen := make(map[string]bool)
	for _, r := range rows {
		if !cat.Exists(r.Code) && !seen[r.Code] {
			seen[r.Code] = true
			bad = append(bad, r.Code)
		}
	}
	if len(bad) > 0 {
		metrics.ImportRowsTotal.WithLabelValues("collection", "rejected").Add(float64(len(rows)))
		return &models.ImportResult{
			Status: "Validation failed.",
			Errors: invalidCodeErrors(cat, bad),
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.EnsureDefaultCollection(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListItems(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	plan := PlanImport(existing, rows, active.ID, s.now(), uuid.NewString)
	if err := s.store.PutItems(ctx, plan.Upserts); err != nil {
		return nil, fmt.Errorf("failed to save imported items: %w", err)
	}

	metrics.ImportRowsTotal.WithLabelValues("collection", "imported").Add(float64(len(rows)))
	s.log.Infof("Imported %d rows into collection %s (%d created, %d updated)", len(rows), active.ID, plan.Created, plan.Updated)
	return &models.ImportResult{
		Status:   fmt.Sprintf("Import complete: %d rows imported.", len(rows)),
		Imported: len(rows),
		Created:  plan.Created,
		Updated:  plan.Updated,
	}, nil
}

func invalidCodeErrors(cat *Catalog, bad []string) []string {
	sample := bad
	more := ""
	if len(sample) > invalidCodeSample {
		sample = sample[:invalidCodeSample]
		more = "..."
	}
	errs := []string{fmt.Sprintf("Codes not found in the catalog (sample): %s%s", strings.Join(sample, ", "), more)}
	for _, code := range sample {
		if suggestions := cat.Suggest(code, 3); len(suggestions) > 0 {
			errs = append(errs, fmt.Sprintf("%s: did you mean %s?", code, strings.Join(suggestions, ", ")))
		}
	}
	return errs
}
