package models

import (
	"strings"
	"time"
)

// DefaultGame is the only game slug the tracker handles.
const DefaultGame = "onepiece"

type Collection struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Game      string    `json:"game" gorm:"not null;default:'onepiece'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false;index"`
}

// AppState is a single-row record naming the active collection.
type AppState struct {
	ID                 uint   `json:"-" gorm:"primaryKey"`
	Version            int    `json:"version" gorm:"default:1"`
	ActiveCollectionID string `json:"active_collection_id"`
}

// AppStateID is the primary key of the only AppState row.
const AppStateID = 1

// CollectionItem is one stock line. Items never persist with Qty <= 0.
type CollectionItem struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	CollectionID string       `json:"collection_id" gorm:"not null;index"`
	CardCode     string       `json:"card_code" gorm:"not null;index"`
	Qty          int          `json:"qty" gorm:"not null"`
	Variant      Variant      `json:"variant" gorm:"not null;default:'normal'"`
	Condition    Condition    `json:"condition" gorm:"not null;default:'NM'"`
	Language     CardLanguage `json:"language" gorm:"not null;default:'EN'"`
	Note         string       `json:"note,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// StockKey is the identity tuple of a stock line for merge purposes.
type StockKey struct {
	CardCode  string
	Variant   Variant
	Condition Condition
	Language  CardLanguage
}

// Key returns the identity tuple of the item
func (i *CollectionItem) Key() StockKey {
	return StockKey{
		CardCode:  NormalizeCode(i.CardCode),
		Variant:   i.Variant,
		Condition: i.Condition,
		Language:  i.Language,
	}
}

func (k StockKey) String() string {
	return strings.Join([]string{k.CardCode, string(k.Variant), string(k.Condition), string(k.Language)}, "__")
}

// ImportRow is one parsed row of a collection import.
type ImportRow struct {
	Code      string       `json:"code"`
	Qty       int          `json:"qty"`
	Variant   Variant      `json:"variant"`
	Condition Condition    `json:"condition"`
	Language  CardLanguage `json:"language"`
}

// Key returns the identity tuple the row merges into
func (r ImportRow) Key() StockKey {
	return StockKey{
		CardCode:  NormalizeCode(r.Code),
		Variant:   r.Variant,
		Condition: r.Condition,
		Language:  r.Language,
	}
}

type AddCardRequest struct {
	Code      string       `json:"code" binding:"required"`
	Qty       int          `json:"qty"`
	Variant   Variant      `json:"variant"`
	Condition Condition    `json:"condition"`
	Language  CardLanguage `json:"language"`
	// Note replaces the stock line's note when set
	Note string `json:"note"`
}

type AdjustQuantityRequest struct {
	Delta int `json:"delta"`
}

type CreateCollectionRequest struct {
	Name string `json:"name" binding:"required"`
}

type SetActiveCollectionRequest struct {
	ID string `json:"id" binding:"required"`
}

// ImportResult is the outcome reported to the user after an import.
type ImportResult struct {
	Status   string   `json:"status"`
	Errors   []string `json:"errors,omitempty"`
	Imported int      `json:"imported"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
}
