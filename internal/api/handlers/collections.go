package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/optcg-tracker/internal/models"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

// CollectionsHandler manages the set of collections and which one is active.
type CollectionsHandler struct {
	collections *services.CollectionService
}

func NewCollectionsHandler(collections *services.CollectionService) *CollectionsHandler {
	return &CollectionsHandler{collections: collections}
}

func (h *CollectionsHandler) List(c *gin.Context) {
	list, active, err := h.collections.ListCollections(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"collections": list,
		"active_id":   active,
	})
}

func (h *CollectionsHandler) Create(c *gin.Context) {
	var req models.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.collections.CreateCollection(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CollectionsHandler) SetActive(c *gin.Context) {
	var req models.SetActiveCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active, err := h.collections.SetActiveCollection(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

func (h *CollectionsHandler) Rename(c *gin.Context) {
	var req models.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	renamed, err := h.collections.RenameCollection(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, renamed)
}

func (h *CollectionsHandler) Delete(c *gin.Context) {
	if err := h.collections.DeleteCollection(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "collection deleted"})
}
