// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/internal/storage"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Drafts    DraftManager
	Templates *checklist.Registry
	Store     storage.Store
	Repo      repository.Repository
	Notifier  inspection.Notifier
	Logger    *zap.Logger
	Backend   string
	ListLimit int
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health      HealthHandler
	Templates   TemplateHandler
	Drafts      DraftHandler
	Inspections InspectionHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(deps.Version, deps.Backend, deps.Drafts),
		Templates:   NewTemplateHandler(deps.Templates),
		Drafts:      NewDraftHandler(deps.Drafts, deps.Store, deps.Repo, deps.Notifier, deps.Logger),
		Inspections: NewInspectionHandler(deps.Repo, deps.Store, deps.ListLimit),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Checklist templates
	apiGroup.GET("/checklist/templates", handlers.Templates.HandleListTemplates)

	// Draft routes
	draftGroup := apiGroup.Group("/inspections/drafts")
	draftGroup.POST("", handlers.Drafts.HandleCreateDraft)
	draftGroup.GET("", handlers.Drafts.HandleListDrafts)
	draftGroup.GET("/:draftId", handlers.Drafts.HandleGetDraft)
	draftGroup.PATCH("/:draftId", handlers.Drafts.HandleUpdateDraft)
	draftGroup.DELETE("/:draftId", handlers.Drafts.HandleDeleteDraft)
	draftGroup.PATCH("/:draftId/items/:itemId", handlers.Drafts.HandleUpdateItem)
	draftGroup.POST("/:draftId/images", handlers.Drafts.HandleUploadImages)
	draftGroup.DELETE("/:draftId/images/:imageId", handlers.Drafts.HandleDeleteImage)
	draftGroup.POST("/:draftId/submit", handlers.Drafts.HandleSubmitDraft)

	// Submitted inspections
	inspectionGroup := apiGroup.Group("/inspections")
	inspectionGroup.GET("", handlers.Inspections.HandleListInspections)
	inspectionGroup.GET("/:id", handlers.Inspections.HandleGetInspection)
	inspectionGroup.GET("/:id/msgpack", handlers.Inspections.HandleGetInspectionMsgpack)

	// Photos
	apiGroup.GET("/images/:imageId", handlers.Inspections.HandleGetImage)
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	EnableCORS     bool
	AllowOrigins   string
	BodyLimit      string
	RequestLogging bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	if opts.RequestLogging {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/api/health"
			},
		}))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// Photos are already compressed
			return strings.HasPrefix(c.Path(), "/api/images/")
		},
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	if opts.EnableCORS {
		origins := []string{"*"}
		if opts.AllowOrigins != "" {
			origins = strings.Split(opts.AllowOrigins, ",")
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE, echo.OPTIONS},
		}))
	}
}
