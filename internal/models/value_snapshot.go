package models

import (
	"time"
)

// CollectionValueSnapshot stores daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CollectionID      string    `json:"collection_id" gorm:"not null;uniqueIndex:idx_snapshot_collection_date"`
	SnapshotDate      time.Time `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_snapshot_collection_date"`
	TotalCards        int       `json:"total_cards"`
	UniqueItems       int       `json:"unique_items"`
	EstimatedValue    float64   `json:"estimated_value"`
	MissingPrice      int       `json:"missing_price"`
	CompletionPercent float64   `json:"completion_percent"`
	CreatedAt         time.Time `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
}
