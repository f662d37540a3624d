// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	backend string
	drafts  DraftManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, backend string, drafts DraftManager) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		backend: backend,
		drafts:  drafts,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"storage": h.backend,
	}
	if h.drafts != nil {
		resp["openDrafts"] = h.drafts.Len()
	}
	return c.JSON(http.StatusOK, resp)
}
