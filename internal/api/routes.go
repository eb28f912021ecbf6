package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/optcg-tracker/internal/api/handlers"
	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/metrics"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

// Services groups what the router needs. ScrapeWorker may be nil when
// scraping is disabled. Context is cancelled at server shutdown and bounds
// scrape runs started over HTTP.
type Services struct {
	Context      context.Context
	Catalog      *services.CatalogService
	Collections  *services.CollectionService
	Prices       *services.PriceService
	Snapshots    *services.SnapshotService
	ScrapeWorker *services.ScrapeWorker
}

func SetupRouter(cfg config.Config, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metricsMiddleware())

	frontendPath := cfg.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false // Explicitly set
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog, svc.Collections)
	collectionHandler := handlers.NewCollectionHandler(svc.Collections, svc.Snapshots)
	collectionsHandler := handlers.NewCollectionsHandler(svc.Collections)
	priceHandler := handlers.NewPriceHandler(svc.Context, svc.Prices, svc.ScrapeWorker)

	// API routes
	api := router.Group("/api")
	if cfg.BasicAuthEnabled() {
		api.Use(gin.BasicAuth(gin.Accounts{cfg.BasicAuthUser: cfg.BasicAuthPass}))
	}
	{
		catalog := api.Group("/catalog")
		{
			catalog.GET("/search", catalogHandler.SearchCards)
			catalog.GET("/cards/:code", catalogHandler.GetCard)
			catalog.GET("/sets/:set/missing", catalogHandler.GetMissing)
			catalog.GET("/sets/:set/binder", catalogHandler.GetBinder)
		}

		collections := api.Group("/collections")
		{
			collections.GET("", collectionsHandler.List)
			collections.POST("", collectionsHandler.Create)
			collections.PUT("/active", collectionsHandler.SetActive)
			collections.PUT("/:id", collectionsHandler.Rename)
			collections.DELETE("/:id", collectionsHandler.Delete)
		}

		collection := api.Group("/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("/items", collectionHandler.AddToCollection)
			collection.PATCH("/items/:id", collectionHandler.AdjustQuantity)
			collection.DELETE("/items/:id", collectionHandler.DeleteCollectionItem)
			collection.POST("/import", collectionHandler.ImportCSV)
			collection.GET("/history", collectionHandler.GetValueHistory)
		}

		prices := api.Group("/prices")
		{
			prices.POST("/import", priceHandler.ImportCSV)
			prices.GET("/status", priceHandler.GetPriceStatus)
			prices.POST("/refresh", priceHandler.RefreshPrices)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
	}

	return router
}

// metricsMiddleware records request counts and latencies per route template.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
