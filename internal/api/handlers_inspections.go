// handlers_inspections.go - Submitted inspection and photo handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultListLimit caps list responses when the client gives no limit
const DefaultListLimit = 100

// InspectionHandlerImpl implements the InspectionHandler interface
type InspectionHandlerImpl struct {
	repo      repository.Repository
	store     storage.Store
	listLimit int
}

// NewInspectionHandler creates a new inspection handler instance
func NewInspectionHandler(repo repository.Repository, store storage.Store, listLimit int) InspectionHandler {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &InspectionHandlerImpl{
		repo:      repo,
		store:     store,
		listLimit: listLimit,
	}
}

// HandleListInspections returns submitted inspections, newest first
func (h *InspectionHandlerImpl) HandleListInspections(c echo.Context) error {
	limit := h.listLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("limit")
		}
		if n < limit {
			limit = n
		}
	}

	records, err := h.repo.List(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list inspections", err)
	}
	return c.JSON(http.StatusOK, records)
}

// HandleGetInspection returns one submitted inspection as JSON
func (h *InspectionHandlerImpl) HandleGetInspection(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	record, err := h.repo.Get(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, errRef{inspectionID: id})
	}
	return c.JSON(http.StatusOK, record)
}

// HandleGetInspectionMsgpack returns one submitted inspection as msgpack
func (h *InspectionHandlerImpl) HandleGetInspectionMsgpack(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	record, err := h.repo.Get(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, errRef{inspectionID: id})
	}

	data, err := msgpack.Marshal(record)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetImage streams a stored photo
func (h *InspectionHandlerImpl) HandleGetImage(c echo.Context) error {
	id := c.Param("imageId")
	if id == "" {
		return NewValidationError("imageId")
	}

	rc, info, err := h.store.Open(id)
	if err != nil {
		return fromDomainError(err, errRef{imageID: id})
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", info.Name))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	return c.Stream(http.StatusOK, info.ContentType, rc)
}
