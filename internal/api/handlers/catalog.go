package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/optcg-tracker/internal/models"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

type CatalogHandler struct {
	catalog     *services.CatalogService
	collections *services.CollectionService
}

func NewCatalogHandler(catalog *services.CatalogService, collections *services.CollectionService) *CatalogHandler {
	return &CatalogHandler{
		catalog:     catalog,
		collections: collections,
	}
}

func (h *CatalogHandler) SearchCards(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit, err := intQuery(c, "limit", services.DefaultSearchLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number"})
		return
	}

	result, err := h.catalog.Search(c.Request.Context(), query, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CatalogHandler) GetCard(c *gin.Context) {
	code := models.NormalizeCode(c.Param("code"))

	entry, err := h.catalog.LookupByCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetMissing lists the cards of a set the active collection does not own.
func (h *CatalogHandler) GetMissing(c *gin.Context) {
	missing, err := h.collections.MissingForSet(c.Request.Context(), c.Param("set"), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"set":     models.SetKeyOf(c.Param("set")),
		"missing": missing,
		"count":   len(missing),
	})
}

func (h *CatalogHandler) GetBinder(c *gin.Context) {
	view, err := h.collections.Binder(c.Request.Context(), c.Param("set"), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
