// Package web serves the server-rendered inspection form embedded in the binary.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/storage"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

// GetFileSystem returns the embedded filesystem with the templates folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(templateFiles, "templates")
}

// Config holds what the form page needs to render and submit inspections.
type Config struct {
	Templates *checklist.Registry
	Store     storage.Store
	Saver     inspection.Saver
	Notifier  inspection.Notifier
	Logger    *zap.Logger
	// Now is the clock for the default date; nil means time.Now.
	Now func() time.Time
}

// FormPage renders GET / and handles the POST of the same form.
// Each POST builds a fresh form, so the page keeps no server-side state.
type FormPage struct {
	cfg  Config
	tmpl *template.Template
}

type pageData struct {
	PropertyType string
	Values       inspection.Values
	Items        []models.InspectionItem
	Statuses     []models.Status
	Conditions   []models.Condition
	Errors       map[string]string
	Notice       *inspection.Notification
	Failure      string
}

// NewFormPage parses the embedded template.
func NewFormPage(cfg Config) (*FormPage, error) {
	if cfg.Templates == nil {
		cfg.Templates = checklist.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	fsys, err := GetFileSystem()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.ParseFS(fsys, "inspection_form.html")
	if err != nil {
		return nil, fmt.Errorf("parsing form template: %w", err)
	}
	return &FormPage{cfg: cfg, tmpl: tmpl}, nil
}

// RegisterRoutes registers the form page routes with Echo.
// The API routes should be registered before calling this function.
func (p *FormPage) RegisterRoutes(e *echo.Echo) {
	e.GET("/", p.HandleForm)
	e.POST("/", p.HandleSubmit)
}

func (p *FormPage) newForm(propertyType string) (*inspection.Form, string) {
	tmpl := p.cfg.Templates.Lookup(propertyType)
	return inspection.NewForm(tmpl.Items, inspection.WithClock(p.cfg.Now)), tmpl.PropertyType
}

// HandleForm renders a blank form. ?propertyType= selects the checklist template.
func (p *FormPage) HandleForm(c echo.Context) error {
	form, propertyType := p.newForm(c.QueryParam("propertyType"))
	return p.render(c, http.StatusOK, form, propertyType, nil)
}

// HandleSubmit applies the posted fields to a fresh form and submits it.
// On errors the page is rendered again with the entered values.
func (p *FormPage) HandleSubmit(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	form, propertyType := p.newForm(params.Get("propertyType"))
	errs := applyParams(form, params)

	if verr, ok := form.Validate().(*inspection.ValidationError); ok {
		for field, msg := range verr.Fields {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		return p.render(c, http.StatusUnprocessableEntity, form, propertyType, &pageData{Errors: errs})
	}

	saved, err := p.saveImages(c, form)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return p.render(c, http.StatusUnprocessableEntity, form, propertyType,
				&pageData{Errors: map[string]string{"images": "Envie apenas arquivos de imagem."}})
		}
		p.cfg.Logger.Error("failed to store images", zap.Error(err))
		return p.render(c, http.StatusInternalServerError, form, propertyType,
			&pageData{Failure: "Não foi possível salvar as fotos. Tente novamente."})
	}

	var notice *inspection.Notification
	capture := inspection.NotifierFunc(func(_ context.Context, n inspection.Notification) { notice = &n })

	if _, err := form.Submit(c.Request().Context(), p.cfg.Saver, inspection.Multi(p.cfg.Notifier, capture)); err != nil {
		p.deleteImages(saved)
		p.cfg.Logger.Error("inspection submit failed", zap.Error(err))
		return p.render(c, http.StatusServiceUnavailable, form, propertyType,
			&pageData{Failure: "Não foi possível salvar a vistoria. Tente novamente."})
	}

	blank, _ := p.newForm(propertyType)
	return p.render(c, http.StatusOK, blank, propertyType, &pageData{Notice: notice})
}

// applyParams copies posted values onto form and returns per-field errors.
// Metadata fields absent from the post keep their defaults. Item fields are
// posted as item-<id>-checked, item-<id>-condition and item-<id>-notes; an
// absent checkbox means unchecked.
func applyParams(form *inspection.Form, params url.Values) map[string]string {
	errs := make(map[string]string)
	get := params.Get

	for _, field := range []string{
		inspection.FieldProperty,
		inspection.FieldDate,
		inspection.FieldInspector,
		inspection.FieldStatus,
		inspection.FieldNotes,
	} {
		if !params.Has(field) {
			continue
		}
		if err := form.SetField(field, get(field)); err != nil {
			errs[field] = err.Error()
		}
	}

	for _, item := range form.Items() {
		prefix := "item-" + item.ID + "-"
		key := "items." + item.ID
		if err := form.UpdateChecklistItem(item.ID, string(checklist.FieldChecked), get(prefix+"checked")); err != nil {
			errs[key] = err.Error()
		}
		if cond := get(prefix + "condition"); cond != "" {
			if err := form.UpdateChecklistItem(item.ID, string(checklist.FieldCondition), cond); err != nil {
				errs[key] = err.Error()
			}
		}
		if err := form.UpdateChecklistItem(item.ID, string(checklist.FieldNotes), get(prefix+"notes")); err != nil {
			errs[key] = err.Error()
		}
	}
	return errs
}

func (p *FormPage) saveImages(c echo.Context, form *inspection.Form) ([]models.Attachment, error) {
	if p.cfg.Store == nil || !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	var saved []models.Attachment
	for _, fh := range mf.File["images"] {
		// Browsers post an empty part when no file is chosen.
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		info, err := p.saveOne(fh)
		if err != nil {
			p.deleteImages(saved)
			return nil, err
		}
		saved = append(saved, *info)
		form.AttachImage(*info)
	}
	return saved, nil
}

func (p *FormPage) saveOne(fh *multipart.FileHeader) (*models.Attachment, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return p.cfg.Store.Save(fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
}

func (p *FormPage) deleteImages(images []models.Attachment) {
	for _, img := range images {
		if err := p.cfg.Store.Delete(img.ID); err != nil {
			p.cfg.Logger.Warn("failed to delete image", zap.String("image_id", img.ID), zap.Error(err))
		}
	}
}

func (p *FormPage) render(c echo.Context, status int, form *inspection.Form, propertyType string, extra *pageData) error {
	data := pageData{}
	if extra != nil {
		data = *extra
	}
	data.PropertyType = propertyType
	data.Values = form.Values()
	data.Items = form.Items()
	data.Statuses = models.Statuses
	data.Conditions = models.Conditions

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render form")
	}
	return c.HTMLBlob(status, buf.Bytes())
}
