// Package checklist holds the ordered sequence of inspection items and the
// templates used to build it.
package checklist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vistoria/inspection/internal/models"
)

var (
	// ErrItemNotFound is returned when an update targets an id that is not in the checklist.
	ErrItemNotFound = errors.New("checklist item not found")
	// ErrUnknownField is returned for field names other than checked, notes and condition.
	ErrUnknownField = errors.New("unknown checklist field")
	// ErrInvalidValue is returned when a value cannot be assigned to the named field.
	ErrInvalidValue = errors.New("invalid value")
)

// Field names an editable attribute of an inspection item.
type Field string

const (
	FieldChecked   Field = "checked"
	FieldNotes     Field = "notes"
	FieldCondition Field = "condition"
)

// ParseField converts a raw field name into a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldChecked, FieldNotes, FieldCondition:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Checklist is an ordered sequence of items with unique ids.
// Display order is slice order. A Checklist is not safe for concurrent use.
type Checklist struct {
	items []models.InspectionItem
}

// New builds a checklist with one fresh item per definition.
func New(defs []models.ItemDefinition) *Checklist {
	items := make([]models.InspectionItem, 0, len(defs))
	for _, d := range defs {
		items = append(items, d.NewItem())
	}
	return &Checklist{items: items}
}

// Items returns a copy of the items in display order.
func (c *Checklist) Items() []models.InspectionItem {
	out := make([]models.InspectionItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Checklist) Len() int {
	return len(c.items)
}

// Get returns the item with the given id.
func (c *Checklist) Get(id string) (models.InspectionItem, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return models.InspectionItem{}, false
}

// Update replaces the item with the given id by a copy that has field set to value.
// On any error the checklist is left exactly as it was.
func (c *Checklist) Update(id string, field Field, value any) error {
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	item := c.items[i]
	switch field {
	case FieldChecked:
		v, err := toBool(value)
		if err != nil {
			return err
		}
		item.Checked = v
	case FieldNotes:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: notes must be text, got %T", ErrInvalidValue, value)
		}
		item.Notes = v
	case FieldCondition:
		v, err := toCondition(value)
		if err != nil {
			return err
		}
		item.Condition = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	c.items[i] = item
	return nil
}

func (c *Checklist) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// toBool accepts booleans and the string forms sent by HTML checkboxes and JSON clients.
func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		if s == "on" {
			return true, nil
		}
		if s == "" || s == "off" {
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("%w: checked must be a boolean, got %q", ErrInvalidValue, v)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: checked must be a boolean, got %T", ErrInvalidValue, value)
}

func toCondition(value any) (models.Condition, error) {
	var raw string
	switch v := value.(type) {
	case models.Condition:
		raw = string(v)
	case string:
		raw = v
	default:
		return "", fmt.Errorf("%w: condition must be text, got %T", ErrInvalidValue, value)
	}
	c, err := models.ParseCondition(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return c, nil
}
