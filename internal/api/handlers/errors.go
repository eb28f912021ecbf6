package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/optcg-tracker/internal/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrCodeRequired),
		errors.Is(err, services.ErrCSVMissingColumns):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrCSVTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrCatalogEmpty),
		errors.Is(err, services.ErrCatalogUnreadable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrScrapeRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
