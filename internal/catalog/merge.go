package catalog

import (
	"sort"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// FieldPolicy decides what happens to one field when two records share a code.
type FieldPolicy int

const (
	// Overwrite takes the later record's value whenever it is non-empty.
	Overwrite FieldPolicy = iota
	// KeepIfPresent keeps an earlier non-empty value; the later value only
	// fills a blank.
	KeepIfPresent
)

func (p FieldPolicy) String() string {
	if p == KeepIfPresent {
		return "keep-if-present"
	}
	return "overwrite"
}

// MergePolicy is the per-field merge table applied when several vendor
// records describe the same card code. Descriptive metadata is protected:
// a later record can add it but never blank or replace it.
var MergePolicy = map[string]FieldPolicy{
	"code":           Overwrite,
	"name":           Overwrite,
	"traits":         Overwrite,
	"marketPrice":    Overwrite,
	"inventoryPrice": Overwrite,
	"scrapedAt":      Overwrite,
	"imageUrl":       KeepIfPresent,
	"setName":        KeepIfPresent,
	"rarity":         KeepIfPresent,
	"color":          KeepIfPresent,
	"type":           KeepIfPresent,
	"cost":           KeepIfPresent,
	"power":          KeepIfPresent,
	"packId":         KeepIfPresent,
	"set":            KeepIfPresent,
}

// ProtectedFields lists the KeepIfPresent fields, sorted.
func ProtectedFields() []string {
	var out []string
	for name, p := range MergePolicy {
		if p == KeepIfPresent {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type mergeField struct {
	name  string
	apply func(dst, src *models.CatalogEntry, p FieldPolicy)
}

func stringField(name string, get func(*models.CatalogEntry) *string) mergeField {
	return mergeField{name: name, apply: func(dst, src *models.CatalogEntry, p FieldPolicy) {
		d, s := get(dst), get(src)
		if take(p, *d == "", *s == "") {
			*d = *s
		}
	}}
}

func floatField(name string, get func(*models.CatalogEntry) **float64) mergeField {
	return mergeField{name: name, apply: func(dst, src *models.CatalogEntry, p FieldPolicy) {
		d, s := get(dst), get(src)
		if take(p, *d == nil, *s == nil) {
			*d = *s
		}
	}}
}

// take reports whether the source value replaces the destination value.
func take(p FieldPolicy, dstEmpty, srcEmpty bool) bool {
	if srcEmpty {
		return false
	}
	if p == KeepIfPresent {
		return dstEmpty
	}
	return true
}

var mergeFields = []mergeField{
	stringField("code", func(e *models.CatalogEntry) *string { return &e.Code }),
	stringField("name", func(e *models.CatalogEntry) *string { return &e.Name }),
	stringField("set", func(e *models.CatalogEntry) *string { return &e.Set }),
	stringField("setName", func(e *models.CatalogEntry) *string { return &e.SetName }),
	stringField("packId", func(e *models.CatalogEntry) *string { return &e.PackID }),
	stringField("rarity", func(e *models.CatalogEntry) *string { return &e.Rarity }),
	stringField("color", func(e *models.CatalogEntry) *string { return &e.Color }),
	stringField("type", func(e *models.CatalogEntry) *string { return &e.Type }),
	stringField("imageUrl", func(e *models.CatalogEntry) *string { return &e.ImageURL }),
	stringField("cost", func(e *models.CatalogEntry) *string { return &e.Cost }),
	stringField("power", func(e *models.CatalogEntry) *string { return &e.Power }),
	stringField("scrapedAt", func(e *models.CatalogEntry) *string { return &e.ScrapedAt }),
	floatField("marketPrice", func(e *models.CatalogEntry) **float64 { return &e.MarketPrice }),
	floatField("inventoryPrice", func(e *models.CatalogEntry) **float64 { return &e.InventoryPrice }),
	{name: "traits", apply: func(dst, src *models.CatalogEntry, p FieldPolicy) {
		if take(p, len(dst.Traits) == 0, len(src.Traits) == 0) {
			dst.Traits = append([]string(nil), src.Traits...)
		}
	}},
}

// Merge folds next into prev according to MergePolicy.
func Merge(prev, next models.CatalogEntry) models.CatalogEntry {
	out := prev
	out.Traits = append([]string(nil), prev.Traits...)
	if len(out.Traits) == 0 {
		out.Traits = nil
	}
	for _, f := range mergeFields {
		f.apply(&out, &next, MergePolicy[f.name])
	}
	return out
}

// DedupPolicy chooses how records sharing a code are combined.
type DedupPolicy int

const (
	// DedupMerge merges field by field with MergePolicy (local exports).
	DedupMerge DedupPolicy = iota
	// DedupFirstWins keeps the first record seen verbatim (online API).
	DedupFirstWins
)

// Accumulator collects entries keyed by upper-cased code.
type Accumulator struct {
	policy DedupPolicy
	byCode map[string]models.CatalogEntry
}

func NewAccumulator(policy DedupPolicy) *Accumulator {
	return &Accumulator{policy: policy, byCode: make(map[string]models.CatalogEntry)}
}

// Add stores an entry, combining it with an earlier one for the same code.
func (a *Accumulator) Add(entry models.CatalogEntry) {
	entry.Code = models.NormalizeCode(entry.Code)
	if entry.Code == "" {
		return
	}
	prev, ok := a.byCode[entry.Code]
	switch {
	case !ok:
		a.byCode[entry.Code] = entry
	case a.policy == DedupMerge:
		a.byCode[entry.Code] = Merge(prev, entry)
	}
}

func (a *Accumulator) Len() int {
	return len(a.byCode)
}

// Entries returns the accumulated entries sorted by code.
func (a *Accumulator) Entries() []models.CatalogEntry {
	out := make([]models.CatalogEntry, 0, len(a.byCode))
	for _, e := range a.byCode {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}
