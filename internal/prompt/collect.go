package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
)

// Collect asks for every metadata field and walks the checklist item by item,
// writing each answer into form. Required fields are validated at the prompt.
func Collect(ctx context.Context, d Driver, form *inspection.Form) error {
	values := form.Values()

	for _, q := range []struct {
		field, message, def string
	}{
		{inspection.FieldProperty, "Imóvel", values.Property},
		{inspection.FieldDate, "Data (AAAA-MM-DD)", values.Date},
		{inspection.FieldInspector, "Responsável", values.Inspector},
	} {
		field := q.field
		answer, err := d.Input(ctx, InputConfig{
			Message:   q.message,
			Default:   q.def,
			Validator: required(field),
		})
		if err != nil {
			return err
		}
		if err := form.SetField(field, answer); err != nil {
			return err
		}
	}

	statusIdx, err := d.Select(ctx, SelectConfig{
		Message:      "Status",
		Options:      statusLabels(),
		DefaultIndex: indexOfStatus(values.Status),
	})
	if err != nil {
		return err
	}
	if statusIdx >= 0 {
		if err := form.SetField(inspection.FieldStatus, string(models.Statuses[statusIdx])); err != nil {
			return err
		}
	}

	for _, item := range form.Items() {
		if err := collectItem(ctx, d, form, item); err != nil {
			return err
		}
	}

	notes, err := d.TextArea(ctx, TextAreaConfig{Message: "Observações Gerais", Default: values.Notes})
	if err != nil {
		return err
	}
	return form.SetField(inspection.FieldNotes, notes)
}

func collectItem(ctx context.Context, d Driver, form *inspection.Form, item models.InspectionItem) error {
	checked, err := d.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("%s verificado?", item.Name),
		Default: item.Checked,
	})
	if err != nil {
		return err
	}
	if err := form.UpdateChecklistItem(item.ID, string(checklist.FieldChecked), checked); err != nil {
		return err
	}

	condIdx, err := d.Select(ctx, SelectConfig{
		Message:      fmt.Sprintf("Condição de %s", item.Name),
		Options:      conditionLabels(),
		DefaultIndex: indexOfCondition(item.Condition),
	})
	if err != nil {
		return err
	}
	if condIdx >= 0 {
		if err := form.UpdateChecklistItem(item.ID, string(checklist.FieldCondition), models.Conditions[condIdx]); err != nil {
			return err
		}
	}

	notes, err := d.Input(ctx, InputConfig{
		Message: fmt.Sprintf("Observações sobre %s", item.Name),
		Default: item.Notes,
	})
	if err != nil {
		return err
	}
	return form.UpdateChecklistItem(item.ID, string(checklist.FieldNotes), notes)
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		if field == inspection.FieldDate {
			if _, err := time.Parse(models.DateLayout, s); err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD")
			}
		}
		return nil
	}
}

func statusLabels() []string {
	out := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		out[i] = s.Label()
	}
	return out
}

func conditionLabels() []string {
	out := make([]string, len(models.Conditions))
	for i, c := range models.Conditions {
		out[i] = c.Label()
	}
	return out
}

func indexOfStatus(s models.Status) int {
	for i, st := range models.Statuses {
		if st == s {
			return i
		}
	}
	return 0
}

func indexOfCondition(c models.Condition) int {
	for i, cond := range models.Conditions {
		if cond == c {
			return i
		}
	}
	return 0
}
