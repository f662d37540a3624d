// Package inspection implements the property inspection form: editable field
// state, the checklist it owns, validation and submission.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/models"
)

// Form field names accepted by SetField.
const (
	FieldProperty  = "property"
	FieldDate      = "date"
	FieldInspector = "inspector"
	FieldStatus    = "status"
	FieldNotes     = "notes"
)

var (
	ErrItemNotFound = checklist.ErrItemNotFound
	ErrUnknownField = checklist.ErrUnknownField
	ErrInvalidValue = checklist.ErrInvalidValue
	// ErrSaveFailed wraps repository failures during Submit. The form is left intact.
	ErrSaveFailed = errors.New("saving inspection failed")
)

// Values is the non-checklist field state of a form.
type Values struct {
	Property  string              `json:"property"`
	Date      string              `json:"date"`
	Inspector string              `json:"inspector"`
	Status    models.Status       `json:"status"`
	Notes     string              `json:"notes"`
	Images    []models.Attachment `json:"images"`
}

// Saver persists a submitted inspection and returns its id.
type Saver interface {
	Save(ctx context.Context, record models.Inspection) (string, error)
}

// Form is the inspection form controller. The checklist is the only copy of
// the items; Snapshot projects it into the submitted record.
// A Form is not safe for concurrent use.
type Form struct {
	values    Values
	checklist *checklist.Checklist
	now       func() time.Time
}

// Option configures a Form.
type Option func(*Form)

// WithClock overrides the clock used for the default date and submit time.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// NewForm creates a blank form whose checklist is built from defs.
// The date defaults to the current UTC calendar date and the status to pending.
func NewForm(defs []models.ItemDefinition, opts ...Option) *Form {
	f := &Form{
		checklist: checklist.New(defs),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.values = Values{
		Date:   f.now().UTC().Format(models.DateLayout),
		Status: models.StatusPending,
		Images: []models.Attachment{},
	}
	return f
}

// SetField assigns one of the metadata fields.
func (f *Form) SetField(name, value string) error {
	switch name {
	case FieldProperty:
		f.values.Property = strings.TrimSpace(value)
	case FieldInspector:
		f.values.Inspector = strings.TrimSpace(value)
	case FieldNotes:
		// Notes are free text kept as typed; renderers escape them.
		f.values.Notes = value
	case FieldDate:
		value = strings.TrimSpace(value)
		if value != "" {
			if _, err := time.Parse(models.DateLayout, value); err != nil {
				return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidValue, value)
			}
		}
		f.values.Date = value
	case FieldStatus:
		st, err := models.ParseStatus(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		f.values.Status = st
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// UpdateChecklistItem sets field of the item with the given id.
// An unknown id returns ErrItemNotFound and leaves the checklist unchanged.
func (f *Form) UpdateChecklistItem(id, field string, value any) error {
	fld, err := checklist.ParseField(field)
	if err != nil {
		return err
	}
	return f.checklist.Update(id, fld, value)
}

// AttachImage adds a stored photo to the form.
func (f *Form) AttachImage(a models.Attachment) {
	f.values.Images = append(f.values.Images, a)
}

// DetachImage removes a photo by id and reports whether it was attached.
func (f *Form) DetachImage(id string) bool {
	for i, img := range f.values.Images {
		if img.ID == id {
			f.values.Images = append(f.values.Images[:i:i], f.values.Images[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy of the checklist.
func (f *Form) Items() []models.InspectionItem {
	return f.checklist.Items()
}

// Values returns a copy of the field state.
func (f *Form) Values() Values {
	v := f.values
	v.Images = append(make([]models.Attachment, 0, len(f.values.Images)), f.values.Images...)
	return v
}

// Validate reports every required field that is empty.
func (f *Form) Validate() error {
	verr := &ValidationError{}
	if f.values.Property == "" {
		verr.Add(FieldProperty, "property is required")
	}
	if f.values.Date == "" {
		verr.Add(FieldDate, "date is required")
	}
	if f.values.Inspector == "" {
		verr.Add(FieldInspector, "inspector is required")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Snapshot projects the fields and the current checklist into one record.
// The record shares no memory with the form.
func (f *Form) Snapshot() models.Inspection {
	v := f.Values()
	return models.Inspection{
		Property:  v.Property,
		Date:      v.Date,
		Inspector: v.Inspector,
		Status:    v.Status,
		Items:     f.checklist.Items(),
		Notes:     v.Notes,
		Images:    v.Images,
	}
}

// Submit validates the form, saves the snapshot and emits one confirmation.
// On failure nothing is notified and the form keeps its state.
func (f *Form) Submit(ctx context.Context, saver Saver, notifier Notifier) (*models.Inspection, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	record := f.Snapshot()
	record.SubmittedAt = f.now().UTC()

	id, err := saver.Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	record.ID = id

	if notifier != nil {
		notifier.Notify(ctx, Confirmation(record))
	}
	return &record, nil
}
