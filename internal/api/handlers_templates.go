// handlers_templates.go - Checklist template handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/checklist"
)

// TemplateHandlerImpl implements the TemplateHandler interface
type TemplateHandlerImpl struct {
	templates *checklist.Registry
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates *checklist.Registry) TemplateHandler {
	return &TemplateHandlerImpl{templates: templates}
}

// HandleListTemplates returns every registered template, the default first
func (h *TemplateHandlerImpl) HandleListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.templates.Templates())
}
