package models

import "strings"

// UnknownSet is the set code given to entries and items without one.
const UnknownSet = "UNKNOWN"

// CatalogEntry is one canonical card of the catalog artifact. The JSON field
// names are the artifact contract shared with every consumer.
type CatalogEntry struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Set     string `json:"set,omitempty"`
	SetName string `json:"setName,omitempty"`
	PackID  string `json:"packId,omitempty"`
	Rarity  string `json:"rarity,omitempty"`
	Color   string `json:"color,omitempty"`
	Type    string `json:"type,omitempty"`
	// ImageURL prefers the full-size image when the source has both
	ImageURL string   `json:"imageUrl,omitempty"`
	Cost     string   `json:"cost,omitempty"`
	Power    string   `json:"power,omitempty"`
	Traits   []string `json:"traits,omitempty"`

	// Market snapshot, only filled by the online builder
	MarketPrice    *float64 `json:"marketPrice,omitempty"`
	InventoryPrice *float64 `json:"inventoryPrice,omitempty"`
	ScrapedAt      string   `json:"scrapedAt,omitempty"`
}

// SetKey returns the upper-cased set code used for grouping, UNKNOWN when empty.
func (e *CatalogEntry) SetKey() string {
	return SetKeyOf(e.Set)
}

// SetKeyOf normalizes a set code for grouping.
func SetKeyOf(set string) string {
	s := strings.ToUpper(strings.TrimSpace(set))
	if s == "" {
		return UnknownSet
	}
	return s
}

// NormalizeCode upper-cases and trims a card code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type CatalogSearchResult struct {
	Cards      []CatalogEntry `json:"cards"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}
