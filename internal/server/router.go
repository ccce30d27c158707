package server

import (
	"time"

	"fsgraph/internal/core"
	"fsgraph/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	RegisterRoutes(router, h)
	return router
}

// RegisterRoutes mounts the graph, search, health and metrics endpoints.
// The sqlite, redis and igraph paths are aliases named after the backing store.
func RegisterRoutes(router gin.IRoutes, h *Handlers) {
	router.GET("/graph/relational", h.GetGraph(core.SourceRelational))
	router.GET("/graph/sqlite", h.GetGraph(core.SourceRelational))
	router.GET("/graph/cache", h.GetGraph(core.SourceCache))
	router.GET("/graph/redis", h.GetGraph(core.SourceCache))
	router.GET("/graph/create", h.CreateGraph)

	router.GET("/search/relational", h.SearchRelational)
	router.GET("/search/sqlite", h.SearchRelational)
	router.GET("/search/inmemory", h.SearchInMemory)
	router.GET("/search/igraph", h.SearchInMemory)

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RequestLogger tags each request with an id and logs it through zerolog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.Info().
			Str(requestIDKey, requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
