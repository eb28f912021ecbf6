package catalog

import (
	"strings"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// InferSet returns the first "-" delimited segment of an upper-cased code.
func InferSet(code string) string {
	id := strings.ToUpper(strings.TrimSpace(code))
	if id == "" {
		return models.UnknownSet
	}
	set, _, _ := strings.Cut(id, "-")
	if set == "" {
		return models.UnknownSet
	}
	return set
}

// NormalizeRecord turns one vendor export record into a catalog entry.
// Records without a usable id are rejected.
func NormalizeRecord(rec Record, packs PackTitles) (models.CatalogEntry, bool) {
	code := strings.ToUpper(safeStr(rec["id"]))
	if code == "" {
		return models.CatalogEntry{}, false
	}

	entry := models.CatalogEntry{
		Code:   code,
		Name:   safeStr(rec["name"]),
		Set:    strings.ToUpper(safeStr(rec["set"])),
		PackID: strings.ToUpper(safeStr(rec["pack_id"])),
		Rarity: safeStr(rec["rarity"]),
		Type:   safeStr(rec["category"]),
		Color:  joinColors(rec["colors"]),
		Traits: stringList(rec["types"]),
	}
	if entry.Name == "" {
		entry.Name = code
	}
	if entry.Set == "" {
		entry.Set = InferSet(code)
	}
	if title, ok := packs.Lookup(entry.PackID); ok {
		entry.SetName = title
	}

	entry.ImageURL = safeStr(rec["img_full_url"])
	if entry.ImageURL == "" {
		entry.ImageURL = safeStr(rec["img_url"])
	}

	// numeric-looking fields keep their source text
	entry.Cost = rawStr(rec["cost"])
	entry.Power = rawStr(rec["power"])

	return entry, true
}

func joinColors(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, c := range list {
		if s := safeStr(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, t := range list {
		if s := safeStr(t); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
