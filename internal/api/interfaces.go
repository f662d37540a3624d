// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// TemplateHandler lists the checklist templates a draft can start from
type TemplateHandler interface {
	HandleListTemplates(c echo.Context) error
}

// DraftHandler handles editing and submitting inspection forms
type DraftHandler interface {
	HandleCreateDraft(c echo.Context) error
	HandleListDrafts(c echo.Context) error
	HandleGetDraft(c echo.Context) error
	HandleUpdateDraft(c echo.Context) error
	HandleUpdateItem(c echo.Context) error
	HandleUploadImages(c echo.Context) error
	HandleDeleteImage(c echo.Context) error
	HandleSubmitDraft(c echo.Context) error
	HandleDeleteDraft(c echo.Context) error
}

// InspectionHandler serves submitted inspections and their photos
type InspectionHandler interface {
	HandleListInspections(c echo.Context) error
	HandleGetInspection(c echo.Context) error
	HandleGetInspectionMsgpack(c echo.Context) error
	HandleGetImage(c echo.Context) error
}

// DraftManager defines the draft operations the handlers need
// This allows mocking in tests
type DraftManager interface {
	Create(propertyType string) (models.DraftInfo, error)
	View(id string) (*session.DraftView, error)
	With(id string, fn func(*inspection.Form) error) error
	Touch(id string) bool
	Submit(ctx context.Context, id string, saver inspection.Saver, notifier inspection.Notifier) (*models.Inspection, error)
	Delete(id string) ([]string, error)
	List() []models.DraftInfo
	Len() int
}

var _ DraftManager = (*session.Manager)(nil)
