package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/optcg-tracker/internal/models"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

// maxImportBytes bounds an uploaded CSV
const maxImportBytes = 10 << 20

// Maximum quantity allowed per request
const maxQuantity = 9999

type CollectionHandler struct {
	collections *services.CollectionService
	snapshots   *services.SnapshotService
}

func NewCollectionHandler(collections *services.CollectionService, snapshots *services.SnapshotService) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		snapshots:   snapshots,
	}
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	view, err := h.collections.View(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Qty > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
		return
	}

	view, err := h.collections.AddCard(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CollectionHandler) AdjustQuantity(c *gin.Context) {
	var req models.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Delta > maxQuantity || req.Delta < -maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delta is out of range"})
		return
	}

	view, err := h.collections.AdjustQuantity(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	view, err := h.collections.DeleteItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ImportCSV accepts the CSV either as the raw request body or as a
// multipart form field named "file".
func (h *CollectionHandler) ImportCSV(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.collections.ImportCSV(c.Request.Context(), data)
	if err != nil {
		if result != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "status": result.Status, "errors": result.Errors})
			return
		}
		respondError(c, err)
		return
	}
	if len(result.Errors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	history, err := h.snapshots.GetHistory(c.Request.Context(), c.DefaultQuery("period", "month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("multipart upload needs a 'file' field")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	return data, nil
}
