package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/optcg-tracker/internal/services"
)

type PriceHandler struct {
	prices *services.PriceService
	// nil when scraping is disabled
	worker *services.ScrapeWorker
	// background runs are bound to the server lifetime, not the request
	runCtx context.Context
}

func NewPriceHandler(runCtx context.Context, prices *services.PriceService, worker *services.ScrapeWorker) *PriceHandler {
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &PriceHandler{
		prices: prices,
		worker: worker,
		runCtx: runCtx,
	}
}

// ImportCSV replaces overlay prices from a CSV body or multipart file.
func (h *PriceHandler) ImportCSV(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.prices.ImportCSV(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPriceStatus returns the state of the scrape worker
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	if h.worker == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"status":  h.worker.GetStatus(),
	})
}

// RefreshPrices starts a scrape run in the background.
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	if h.worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price scraping is disabled"})
		return
	}
	if err := h.worker.Start(h.runCtx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "price refresh started"})
}
