package handlers

import (
	"net/http"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// HealthHandler reports liveness and readiness.
type HealthHandler struct {
	logger      *observability.Logger
	service     string
	catalog     *catalog.Catalog
	chatEnabled bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *observability.Logger, service string, cat *catalog.Catalog, chatEnabled bool) *HealthHandler {
	return &HealthHandler{logger: logger, service: service, catalog: cat, chatEnabled: chatEnabled}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
	})
}

// Ready handles GET /ready. An empty catalog is not ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	entries := 0
	if h.catalog != nil {
		entries = h.catalog.Len()
	}

	status, code := "ready", http.StatusOK
	if entries == 0 {
		status, code = "not ready", http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, code, map[string]interface{}{
		"status":         status,
		"catalogEntries": entries,
		"chat":           h.chatEnabled,
	})
}
