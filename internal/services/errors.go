package services

import "errors"

var (
	// ErrCatalogEmpty means the catalog artifact holds no entries.
	ErrCatalogEmpty = errors.New("catalog is empty")
	// ErrCatalogUnreadable means the catalog artifact could not be fetched or parsed.
	ErrCatalogUnreadable = errors.New("catalog is unreadable")

	ErrCSVTooLarge        = errors.New("csv has too many lines")
	ErrCSVMissingColumns  = errors.New("csv is missing required columns")
	ErrItemNotFound       = errors.New("collection item not found")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrCollectionNotFound = errors.New("collection not found")
)

// ErrCodeRequired is returned when a card code is blank.
var ErrCodeRequired = errors.New("card code is required")
