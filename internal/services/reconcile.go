package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// ResolveMarketPrice prefers the overlay trend price, then the catalog's
// baked-in market price.
func ResolveMarketPrice(entry *models.CatalogEntry, price *models.PriceEntry) *float64 {
	if price != nil && price.TrendEur != nil {
		v := *price.TrendEur
		return &v
	}
	if entry != nil && entry.MarketPrice != nil {
		v := *entry.MarketPrice
		return &v
	}
	return nil
}

// Enrich annotates items with catalog data and their resolved price, sorted
// by card code. The catalog is never modified.
func Enrich(items []models.CollectionItem, c *Catalog, prices map[string]models.PriceEntry) []models.EnrichedItem {
	out := make([]models.EnrichedItem, 0, len(items))
	for _, it := range items {
		e := models.EnrichedItem{CollectionItem: it}
		entry := c.LookupByCode(it.CardCode)
		if entry != nil {
			e.InCatalog = true
			e.Name = entry.Name
			e.ImageURL = entry.ImageURL
			e.Set = entry.Set
			e.SetName = entry.SetName
		}
		var price *models.PriceEntry
		if p, ok := prices[models.NormalizeCode(it.CardCode)]; ok {
			price = &p
		}
		e.MarketPrice = ResolveMarketPrice(entry, price)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CardCode < out[j].CardCode
	})
	return out
}

// FilterItems keeps items whose code or name contains query, case-insensitively.
func FilterItems(items []models.EnrichedItem, query string) []models.EnrichedItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []models.EnrichedItem
	for _, it := range items {
		if containsFold(it.CardCode, q) || containsFold(it.Name, q) {
			out = append(out, it)
		}
	}
	return out
}

// ClampRatio bounds a completion ratio to [0,1]. A ratio above 1 only happens
// when ownership is inconsistent with a stale catalog.
func ClampRatio(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// roundPercent turns a ratio into a percentage with one decimal.
func roundPercent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

func distinctCodes(items []models.EnrichedItem) map[string]int {
	owned := make(map[string]int)
	for _, it := range items {
		owned[models.NormalizeCode(it.CardCode)] += it.Qty
	}
	return owned
}

// GroupBySet partitions items by upper-cased set. Sets sort by code with
// UNKNOWN last; items within a group sort by card code.
func GroupBySet(items []models.EnrichedItem, c *Catalog) []models.SetGroup {
	bySet := make(map[string][]models.EnrichedItem)
	for _, it := range items {
		set := models.SetKeyOf(it.Set)
		bySet[set] = append(bySet[set], it)
	}

	groups := make([]models.SetGroup, 0, len(bySet))
	for set, members := range bySet {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CardCode < members[j].CardCode
		})
		g := models.SetGroup{
			SetCode:          set,
			Items:            members,
			UniqueItems:      len(members),
			OwnedUniqueCodes: len(distinctCodes(members)),
		}
		for _, m := range members {
			g.TotalCards += m.Qty
		}

		g.SetName = set
		if name := c.SetName(set); name != "" {
			g.SetName = name
		}
		for _, m := range members {
			if name := strings.TrimSpace(m.SetName); name != "" {
				g.SetName = name
				break
			}
		}

		if total, ok := c.SetTotal(set); ok {
			missing := total - g.OwnedUniqueCodes
			if missing < 0 {
				missing = 0
			}
			var ratio float64
			if total > 0 {
				ratio = ClampRatio(float64(g.OwnedUniqueCodes) / float64(total))
			}
			g.TotalInSet = &total
			g.MissingInSet = &missing
			g.Completion = &ratio
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].SetCode, groups[j].SetCode
		if (a == models.UnknownSet) != (b == models.UnknownSet) {
			return b == models.UnknownSet
		}
		return a < b
	})
	return groups
}

// ComputeCompletion is distinct owned codes over catalog size, clamped to [0,1].
func ComputeCompletion(items []models.EnrichedItem, c *Catalog) models.Completion {
	comp := models.Completion{
		TotalCatalog:     c.Len(),
		OwnedUniqueCodes: len(distinctCodes(items)),
	}
	if comp.TotalCatalog > 0 {
		comp.Ratio = ClampRatio(float64(comp.OwnedUniqueCodes) / float64(comp.TotalCatalog))
	}
	comp.Percent = roundPercent(comp.Ratio)
	return comp
}

// ComputeStats sums quantities and value. Quantity without a known price is
// counted separately.
func ComputeStats(items []models.EnrichedItem) models.CollectionStats {
	stats := models.CollectionStats{UniqueItems: len(items)}
	for _, it := range items {
		stats.TotalCards += it.Qty
		if it.MarketPrice == nil {
			stats.MissingPrice += it.Qty
			continue
		}
		stats.EstimatedValue += float64(it.Qty) * *it.MarketPrice
	}
	stats.EstimatedValue = math.Round(stats.EstimatedValue*100) / 100
	return stats
}

func matchesEntry(e *models.CatalogEntry, q string) bool {
	return q == "" || containsFold(e.Code, q) || containsFold(e.Name, q)
}

// MissingForSet lists the catalog entries of a set whose codes are not owned,
// sorted by code and optionally filtered by code or name.
func MissingForSet(c *Catalog, set string, items []models.EnrichedItem, query string) []models.CatalogEntry {
	owned := distinctCodes(items)
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.CatalogEntry{}
	for _, e := range c.EntriesForSet(set) {
		if _, ok := owned[models.NormalizeCode(e.Code)]; ok {
			continue
		}
		if matchesEntry(&e, q) {
			out = append(out, e)
		}
	}
	return out
}

// BuildBinder lays out every catalog entry of a set with its owned quantity.
func BuildBinder(c *Catalog, set string, items []models.EnrichedItem, query string) models.BinderView {
	key := models.SetKeyOf(set)
	owned := distinctCodes(items)
	q := strings.ToLower(strings.TrimSpace(query))

	view := models.BinderView{
		SetCode:  key,
		SetName:  c.SetName(key),
		Slots:    []models.BinderSlot{},
		Missing:  []models.CatalogEntry{},
		Filtered: q != "",
	}
	if view.SetName == "" {
		view.SetName = key
	}
	for _, e := range c.EntriesForSet(key) {
		view.Total++
		qty, has := owned[models.NormalizeCode(e.Code)]
		if has {
			view.Owned++
		}
		if !matchesEntry(&e, q) {
			continue
		}
		view.Slots = append(view.Slots, models.BinderSlot{Entry: e, Owned: has, OwnedQty: qty})
		if !has {
			view.Missing = append(view.Missing, e)
		}
	}
	return view
}

// ImportPlan is the set of writes an import batch resolves to.
type ImportPlan struct {
	Upserts []models.CollectionItem
	Created int
	Updated int
}

// PlanImport merges rows into a snapshot of the existing items of one
// collection. Rows sharing an identity tuple with an existing item add to its
// quantity; rows for the same new tuple fold into a single created item.
// Rows with a non-positive quantity are ignored.
func PlanImport(existing []models.CollectionItem, rows []models.ImportRow, collectionID string, now time.Time, newID func() string) ImportPlan {
	byKey := make(map[models.StockKey]*models.CollectionItem, len(existing))
	for i := range existing {
		it := existing[i]
		byKey[it.Key()] = &it
	}

	touched := make(map[models.StockKey]*models.CollectionItem)
	var order []models.StockKey
	created := make(map[models.StockKey]bool)

	for _, row := range rows {
		if row.Qty <= 0 {
			continue
		}
		key := row.Key()
		if key.CardCode == "" {
			continue
		}
		item, ok := touched[key]
		if !ok {
			if prev, found := byKey[key]; found {
				cp := *prev
				item = &cp
			} else {
				item = &models.CollectionItem{
					ID:           newID(),
					CollectionID: collectionID,
					CardCode:     key.CardCode,
					Qty:          0,
					Variant:      key.Variant,
					Condition:    key.Condition,
					Language:     key.Language,
					CreatedAt:    now,
				}
				created[key] = true
			}
			touched[key] = item
			order = append(order, key)
		}
		item.Qty += row.Qty
		item.UpdatedAt = now
	}

	plan := ImportPlan{Upserts: make([]models.CollectionItem, 0, len(order))}
	for _, key := range order {
		plan.Upserts = append(plan.Upserts, *touched[key])
		if created[key] {
			plan.Created++
		} else {
			plan.Updated++
		}
	}
	return plan
}
