package server

import (
	"net/http"

	"fsgraph/internal/core"
	"fsgraph/internal/search"
	"fsgraph/pkg"
	"fsgraph/src/logger"

	"github.com/gin-gonic/gin"
)

// Handlers serves the graph and search endpoints. Every request builds its
// own GraphProcessor; nothing is cached between requests.
type Handlers struct {
	deps   core.Dependencies
	engine *search.Engine
}

// NewHandlers creates handlers over the shared store handles
func NewHandlers(deps core.Dependencies, engine *search.Engine) *Handlers {
	return &Handlers{deps: deps, engine: engine}
}

// GetGraph returns the edge list, rehydrated from source when it holds a
// snapshot and freshly built otherwise.
func (h *Handlers) GetGraph(source core.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		processor, err := core.NewGraphProcessor(c.Request.Context(), source, h.deps)
		if err != nil {
			fail(c, "failed to load graph", err)
			return
		}
		h.writeEdges(c, processor)
	}
}

// CreateGraph wipes both stores and rebuilds from disk
func (h *Handlers) CreateGraph(c *gin.Context) {
	ctx := c.Request.Context()
	if err := core.ResetStores(ctx, h.deps); err != nil {
		fail(c, "failed to reset stores", err)
		return
	}
	processor, err := core.NewGraphProcessor(ctx, core.SourceCache, h.deps)
	if err != nil {
		fail(c, "failed to create graph", err)
		return
	}
	h.writeEdges(c, processor)
}

// SearchRelational matches ?key= as a substring pattern in the sqlite store
func (h *Handlers) SearchRelational(c *gin.Context) {
	key, ok := c.GetQuery("key")
	if !ok {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{Error: "key is required"})
		return
	}

	ctx := c.Request.Context()
	// Ensures a snapshot exists, building one if the store is empty.
	if _, err := core.NewGraphProcessor(ctx, core.SourceRelational, h.deps); err != nil {
		fail(c, "failed to load graph", err)
		return
	}

	results, err := h.engine.StorePattern(ctx, key)
	if err != nil {
		fail(c, "search failed", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// SearchInMemory returns vertices named exactly one of the ?key= values
func (h *Handlers) SearchInMemory(c *gin.Context) {
	keys := c.QueryArray("key")
	if len(keys) == 0 {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{Error: "key is required"})
		return
	}

	processor, err := core.NewGraphProcessor(c.Request.Context(), core.SourceCache, h.deps)
	if err != nil {
		fail(c, "failed to load graph", err)
		return
	}
	c.JSON(http.StatusOK, h.engine.InMemoryExact(processor.Graph(), keys...))
}

// Health pings both stores
func (h *Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"relational": "ok", "cache": "ok"}
	code := http.StatusOK
	if err := h.deps.Relational.Ping(ctx); err != nil {
		status["relational"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := h.deps.Cache.Ping(ctx); err != nil {
		status["cache"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *Handlers) writeEdges(c *gin.Context, processor *core.GraphProcessor) {
	data, err := processor.EdgeList()
	if err != nil {
		fail(c, "failed to encode graph", err)
		return
	}
	c.Header("X-Graph-Transition", string(processor.Transition()))
	c.Data(http.StatusOK, "application/json", data)
}

// fail logs err in full and answers 500 with msg only
func fail(c *gin.Context, msg string, err error) {
	logger.Error().
		Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg(msg)
	c.JSON(http.StatusInternalServerError, pkg.ErrorResponse{Error: msg})
}
