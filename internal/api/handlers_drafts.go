// handlers_drafts.go - Inspection draft handlers
package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/internal/storage"
	"go.uber.org/zap"
)

// DraftHandlerImpl implements the DraftHandler interface
type DraftHandlerImpl struct {
	drafts   DraftManager
	store    storage.Store
	repo     repository.Repository
	notifier inspection.Notifier
	logger   *zap.Logger
}

// NewDraftHandler creates a new draft handler instance
func NewDraftHandler(drafts DraftManager, store storage.Store, repo repository.Repository, notifier inspection.Notifier, logger *zap.Logger) DraftHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftHandlerImpl{
		drafts:   drafts,
		store:    store,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleCreateDraft opens a new inspection form for a property type
func (h *DraftHandlerImpl) HandleCreateDraft(c echo.Context) error {
	var req createDraftRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid JSON body", err)
		}
	}

	info, err := h.drafts.Create(req.PropertyType)
	if err != nil {
		return fromDomainError(err, errRef{})
	}

	view, err := h.drafts.View(info.ID)
	if err != nil {
		return fromDomainError(err, errRef{draftID: info.ID})
	}
	return c.JSON(http.StatusCreated, view)
}

// HandleListDrafts returns open drafts, most recently used first
func (h *DraftHandlerImpl) HandleListDrafts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.drafts.List())
}

// HandleGetDraft returns the field state and checklist of a draft
func (h *DraftHandlerImpl) HandleGetDraft(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}

	view, err := h.drafts.View(id)
	if err != nil {
		return fromDomainError(err, errRef{draftID: id})
	}
	return c.JSON(http.StatusOK, view)
}

// HandleUpdateDraft sets metadata fields. Fields with valid values are
// applied; rejected ones are reported together in one 422 response.
func (h *DraftHandlerImpl) HandleUpdateDraft(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}

	var req updateDraftRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	fields := req.fields()
	if len(fields) == 0 {
		return NewBadRequestError("no fields to update", nil)
	}

	err := h.drafts.With(id, func(f *inspection.Form) error {
		verr := &inspection.ValidationError{}
		for _, fv := range fields {
			if err := f.SetField(fv.name, fv.value); err != nil {
				if errors.Is(err, inspection.ErrInvalidValue) {
					verr.Add(fv.name, err.Error())
					continue
				}
				return err
			}
		}
		if verr.Empty() {
			return nil
		}
		return verr
	})
	if err != nil {
		return fromDomainError(err, errRef{draftID: id})
	}

	view, err := h.drafts.View(id)
	if err != nil {
		return fromDomainError(err, errRef{draftID: id})
	}
	return c.JSON(http.StatusOK, view)
}

// HandleUpdateItem sets one field of one checklist item
func (h *DraftHandlerImpl) HandleUpdateItem(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}
	itemID := c.Param("itemId")
	if itemID == "" {
		return NewValidationError("itemId")
	}

	var req updateItemRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	var item models.InspectionItem
	err := h.drafts.With(id, func(f *inspection.Form) error {
		if err := f.UpdateChecklistItem(itemID, req.Field, req.Value); err != nil {
			return err
		}
		for _, it := range f.Items() {
			if it.ID == itemID {
				item = it
				break
			}
		}
		return nil
	})
	if err != nil {
		return fromDomainError(err, errRef{draftID: id, itemID: itemID, field: req.Field})
	}
	return c.JSON(http.StatusOK, item)
}

// HandleUploadImages stores the photos posted in the "images" multipart field
// and attaches them to the draft. Either every photo is attached or none is.
func (h *DraftHandlerImpl) HandleUploadImages(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}
	if !h.drafts.Touch(id) {
		return NewNotFoundError("draft", id)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	files := form.File["images"]
	if len(files) == 0 {
		return NewValidationError("images")
	}

	saved := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		info, err := h.saveUpload(fh)
		if err != nil {
			h.discardImages(saved)
			return fromDomainError(err, errRef{field: "images"})
		}
		saved = append(saved, *info)
	}

	err = h.drafts.With(id, func(f *inspection.Form) error {
		for _, a := range saved {
			f.AttachImage(a)
		}
		return nil
	})
	if err != nil {
		h.discardImages(saved)
		return fromDomainError(err, errRef{draftID: id})
	}

	h.logger.Debug("images attached", zap.String("draft_id", id), zap.Int("count", len(saved)))
	return c.JSON(http.StatusCreated, saved)
}

func (h *DraftHandlerImpl) saveUpload(fh *multipart.FileHeader) (*models.Attachment, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, NewBadRequestError("failed to open uploaded file", err)
	}
	defer src.Close()

	return h.store.Save(fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
}

// discardImages removes photos that were stored but never attached to a draft
func (h *DraftHandlerImpl) discardImages(images []models.Attachment) {
	for _, img := range images {
		h.deleteImage(img.ID)
	}
}

func (h *DraftHandlerImpl) deleteImage(imageID string) {
	if err := h.store.Delete(imageID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Warn("failed to delete image", zap.String("image_id", imageID), zap.Error(err))
	}
}

// HandleDeleteImage detaches a photo from the draft and deletes it
func (h *DraftHandlerImpl) HandleDeleteImage(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}
	imageID := c.Param("imageId")
	if imageID == "" {
		return NewValidationError("imageId")
	}

	var found bool
	err := h.drafts.With(id, func(f *inspection.Form) error {
		found = f.DetachImage(imageID)
		return nil
	})
	if err != nil {
		return fromDomainError(err, errRef{draftID: id})
	}
	if !found {
		return NewNotFoundError("image", imageID)
	}

	h.deleteImage(imageID)
	return c.NoContent(http.StatusNoContent)
}

// HandleSubmitDraft saves the draft as an inspection and discards the draft.
// A failed save leaves the draft open so the client can retry.
func (h *DraftHandlerImpl) HandleSubmitDraft(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}

	var sent *inspection.Notification
	capture := inspection.NotifierFunc(func(_ context.Context, n inspection.Notification) {
		sent = &n
	})

	record, err := h.drafts.Submit(c.Request().Context(), id, h.repo, inspection.Multi(h.notifier, capture))
	if err != nil {
		if errors.Is(err, inspection.ErrSaveFailed) {
			h.logger.Error("inspection save failed", zap.String("draft_id", id), zap.Error(err))
		}
		return fromDomainError(err, errRef{draftID: id})
	}

	return c.JSON(http.StatusCreated, submitResponse{
		Inspection:   record,
		Notification: sent,
	})
}

// HandleDeleteDraft discards a draft and the photos attached to it
func (h *DraftHandlerImpl) HandleDeleteDraft(c echo.Context) error {
	id := c.Param("draftId")
	if id == "" {
		return NewValidationError("draftId")
	}

	imageIDs, err := h.drafts.Delete(id)
	if err != nil {
		return fromDomainError(err, errRef{draftID: id})
	}
	for _, imageID := range imageIDs {
		h.deleteImage(imageID)
	}
	return c.NoContent(http.StatusNoContent)
}

// Request types

type createDraftRequest struct {
	PropertyType string `json:"propertyType"`
}

type updateDraftRequest struct {
	Property  *string `json:"property"`
	Date      *string `json:"date"`
	Inspector *string `json:"inspector"`
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
}

type fieldValue struct {
	name  string
	value string
}

func (r *updateDraftRequest) fields() []fieldValue {
	var out []fieldValue
	add := func(name string, v *string) {
		if v != nil {
			out = append(out, fieldValue{name: name, value: *v})
		}
	}
	add(inspection.FieldProperty, r.Property)
	add(inspection.FieldDate, r.Date)
	add(inspection.FieldInspector, r.Inspector)
	add(inspection.FieldStatus, r.Status)
	add(inspection.FieldNotes, r.Notes)
	return out
}

type updateItemRequest struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

func (r *updateItemRequest) validate() error {
	if r.Field == "" {
		return NewValidationError("field")
	}
	if r.Value == nil {
		return NewValidationError("value")
	}
	return nil
}

type submitResponse struct {
	Inspection   *models.Inspection       `json:"inspection"`
	Notification *inspection.Notification `json:"notification"`
}
