package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/store-management/internal/cache"
	"github.com/spec-kit/store-management/internal/observability"
)

// MetricsHandler exposes in-process request and cache counters.
type MetricsHandler struct {
	metrics *observability.Metrics
	cache   *cache.ProductCache
}

// NewMetricsHandler constructs handler. Both collaborators may be nil.
func NewMetricsHandler(metrics *observability.Metrics, productCache *cache.ProductCache) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, cache: productCache}
}

// Get handles GET /metrics.
func (h *MetricsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"http":  h.metrics.Snapshot(),
		"cache": h.cache.Stats(),
	})
}
