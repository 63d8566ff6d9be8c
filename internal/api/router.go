// Package api exposes the saved results of a run over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"factor-backtest/internal/api/handlers"
	"factor-backtest/internal/api/middleware"
	"factor-backtest/internal/backtest"
	"factor-backtest/internal/data"
)

// NewRouter builds the gin engine serving results under path.
func NewRouter(path string, cache *data.FrameCache) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	results := handlers.NewResultsHandler(path, cache)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_tables": results.CachedTables()})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/results", results.ListResults)
		api.GET("/results/:table", results.GetTable)
		api.GET("/results/:table/last", results.GetLast)
		api.DELETE("/cache", results.ClearCache)
	}

	router.Static("/output", backtest.OutputDir(path))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}

// Handler wraps the router with CORS for the given origins.
func Handler(path string, allowedOrigins []string, cache *data.FrameCache) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(NewRouter(path, cache))
}
