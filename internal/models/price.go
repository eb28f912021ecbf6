package models

import "time"

// PriceEntry is the price overlay for one card code. A later import fully
// replaces the entry for its code.
type PriceEntry struct {
	CardCode  string    `json:"card_code" gorm:"primaryKey"`
	TrendEur  *float64  `json:"trend_eur"`
	Avg30Eur  *float64  `json:"avg30_eur"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
	URL       string    `json:"url,omitempty"`

	// Set by the scraper when the last attempt failed. Prices stay untouched.
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// HasPrice reports whether any figure is known
func (p *PriceEntry) HasPrice() bool {
	return p.TrendEur != nil || p.Avg30Eur != nil
}

func (PriceEntry) TableName() string {
	return "card_prices"
}
