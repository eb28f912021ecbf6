package models

// EnrichedItem is a stock line annotated with catalog data and its resolved price.
type EnrichedItem struct {
	CollectionItem
	Name        string   `json:"name,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Set         string   `json:"set,omitempty"`
	SetName     string   `json:"set_name,omitempty"`
	MarketPrice *float64 `json:"market_price"`
	InCatalog   bool     `json:"in_catalog"`
}

// SetGroup summarizes the owned items of one set.
type SetGroup struct {
	SetCode          string         `json:"set_code"`
	SetName          string         `json:"set_name"`
	Items            []EnrichedItem `json:"items"`
	TotalCards       int            `json:"total_cards"`        // sum of qty
	UniqueItems      int            `json:"unique_items"`       // stock lines
	OwnedUniqueCodes int            `json:"owned_unique_codes"` // distinct codes
	TotalInSet       *int           `json:"total_in_set"`       // nil when the set is not in the catalog
	MissingInSet     *int           `json:"missing_in_set"`
	Completion       *float64       `json:"completion"` // clamped to [0,1]
}

// CollectionStats are the summary figures of a collection.
type CollectionStats struct {
	UniqueItems    int     `json:"unique_items"`
	TotalCards     int     `json:"total_cards"`
	EstimatedValue float64 `json:"estimated_value"`
	MissingPrice   int     `json:"missing_price"` // qty without any price
}

// Completion is the global completion of a collection against the catalog.
type Completion struct {
	TotalCatalog     int     `json:"total_catalog"`
	OwnedUniqueCodes int     `json:"owned_unique_codes"`
	Ratio            float64 `json:"ratio"`
	Percent          float64 `json:"percent"`
}

// CollectionView is the aggregate returned after every read or mutation.
type CollectionView struct {
	Collection Collection      `json:"collection"`
	Items      []EnrichedItem  `json:"items"`
	Groups     []SetGroup      `json:"groups"`
	Stats      CollectionStats `json:"stats"`
	Completion Completion      `json:"completion"`
	Query      string          `json:"query,omitempty"`
}

// BinderSlot is one catalog entry of a set with its owned quantity.
type BinderSlot struct {
	Entry    CatalogEntry `json:"entry"`
	Owned    bool         `json:"owned"`
	OwnedQty int          `json:"owned_qty"`
}

// BinderView lays a set out card by card.
type BinderView struct {
	SetCode  string         `json:"set_code"`
	SetName  string         `json:"set_name"`
	Slots    []BinderSlot   `json:"slots"`
	Missing  []CatalogEntry `json:"missing"`
	Owned    int            `json:"owned"`
	Total    int            `json:"total"`
	Filtered bool           `json:"filtered"`
}
