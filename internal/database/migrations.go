package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// RunMigrations normalizes legacy rows after schema changes. It is safe to run
// on every start.
func RunMigrations(db *gorm.DB, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	normalizeItemFields(db, log)
	normalizePriceCodes(db, log)
	return foldDuplicateItems(db, log)
}

// normalizeItemFields upper-cases codes and fills empty physical attributes
// with their defaults.
func normalizeItemFields(db *gorm.DB, log *zap.SugaredLogger) {
	stmts := []struct {
		name string
		sql  string
	}{
		{"card_code", `UPDATE collection_items SET card_code = UPPER(TRIM(card_code)) WHERE card_code <> UPPER(TRIM(card_code))`},
		{"variant", `UPDATE collection_items SET variant = 'normal' WHERE variant IS NULL OR variant = ''`},
		{"condition", `UPDATE collection_items SET condition = 'NM' WHERE condition IS NULL OR condition = ''`},
		{"language", `UPDATE collection_items SET language = 'EN' WHERE language IS NULL OR language = ''`},
		{"qty", `DELETE FROM collection_items WHERE qty <= 0`},
	}
	for _, s := range stmts {
		result := db.Exec(s.sql)
		if result.Error != nil {
			log.Warnf("failed to normalize collection_items %s: %v", s.name, result.Error)
			continue
		}
		if result.RowsAffected > 0 {
			log.Infof("Normalized %d collection_items rows (%s)", result.RowsAffected, s.name)
		}
	}
}

// normalizePriceCodes upper-cases price codes unless that would collide with
// an existing entry.
func normalizePriceCodes(db *gorm.DB, log *zap.SugaredLogger) {
	result := db.Exec(`
		UPDATE card_prices
		SET card_code = UPPER(TRIM(card_code))
		WHERE card_code <> UPPER(TRIM(card_code))
		  AND UPPER(TRIM(card_code)) NOT IN (SELECT card_code FROM card_prices)
	`)
	if result.Error != nil {
		log.Warnf("failed to normalize card_prices codes: %v", result.Error)
	} else if result.RowsAffected > 0 {
		log.Infof("Normalized %d card_prices codes", result.RowsAffected)
	}
}

// foldDuplicateItems merges stock lines of one collection sharing an identity
// tuple into the oldest line, summing quantities.
func foldDuplicateItems(db *gorm.DB, log *zap.SugaredLogger) error {
	var items []models.CollectionItem
	if err := db.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return err
	}

	type key struct {
		collection string
		stock      models.StockKey
	}
	keep := make(map[key]*models.CollectionItem)
	var updated []*models.CollectionItem
	var drop []string
	for i := range items {
		item := &items[i]
		k := key{collection: item.CollectionID, stock: item.Key()}
		first, ok := keep[k]
		if !ok {
			keep[k] = item
			continue
		}
		first.Qty += item.Qty
		if item.UpdatedAt.After(first.UpdatedAt) {
			first.UpdatedAt = item.UpdatedAt
		}
		updated = append(updated, first)
		drop = append(drop, item.ID)
	}
	if len(drop) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool)
		for _, item := range updated {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			if err := tx.Model(&models.CollectionItem{}).Where("id = ?", item.ID).
				Updates(map[string]any{"qty": item.Qty, "updated_at": item.UpdatedAt}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id IN ?", drop).Delete(&models.CollectionItem{}).Error
	})
	if err != nil {
		return err
	}
	log.Infof("Folded %d duplicate collection_items rows", len(drop))
	return nil
}
