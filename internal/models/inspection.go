package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for inspection dates.
const DateLayout = "2006-01-02"

// Condition is the qualitative rating assigned to a checklist item.
type Condition string

const (
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
)

// Conditions lists the ratings in display order.
var Conditions = []Condition{ConditionGood, ConditionFair, ConditionPoor}

// Valid reports whether c is one of the known ratings.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Label returns the display label shown on the inspection form.
func (c Condition) Label() string {
	switch c {
	case ConditionGood:
		return "Bom"
	case ConditionFair:
		return "Regular"
	case ConditionPoor:
		return "Ruim"
	}
	return string(c)
}

// ParseCondition converts a raw value into a Condition.
func ParseCondition(s string) (Condition, error) {
	c := Condition(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition: %q", s)
	}
	return c, nil
}

// Status is the overall outcome of an inspection.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
)

// Statuses lists the outcomes in display order.
var Statuses = []Status{StatusApproved, StatusRejected, StatusPending}

// Valid reports whether s is one of the known outcomes.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusPending:
		return true
	}
	return false
}

// Label returns the display label shown on the inspection form.
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Aprovado"
	case StatusRejected:
		return "Reprovado"
	case StatusPending:
		return "Pendente"
	}
	return string(s)
}

// ParseStatus converts a raw value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// InspectionItem is one inspectable category of the checklist.
type InspectionItem struct {
	ID        string    `json:"id" msgpack:"id" bson:"id"`
	Name      string    `json:"name" msgpack:"name" bson:"name"`
	Checked   bool      `json:"checked" msgpack:"checked" bson:"checked"`
	Notes     string    `json:"notes" msgpack:"notes" bson:"notes"`
	Condition Condition `json:"condition" msgpack:"condition" bson:"condition"`
}

// Inspection is the immutable record produced when a form is submitted.
type Inspection struct {
	ID          string           `json:"id" msgpack:"id" bson:"_id"`
	Property    string           `json:"property" msgpack:"property" bson:"property"`
	Date        string           `json:"date" msgpack:"date" bson:"date"` // YYYY-MM-DD
	Inspector   string           `json:"inspector" msgpack:"inspector" bson:"inspector"`
	Status      Status           `json:"status" msgpack:"status" bson:"status"`
	Items       []InspectionItem `json:"items" msgpack:"items" bson:"items"`
	Notes       string           `json:"notes" msgpack:"notes" bson:"notes"`
	Images      []Attachment     `json:"images" msgpack:"images" bson:"images"`
	SubmittedAt time.Time        `json:"submittedAt" msgpack:"submittedAt" bson:"submittedAt"`
}

// Clone returns a deep copy so the record never shares slices with its source.
func (i Inspection) Clone() Inspection {
	out := i
	out.Items = append(make([]InspectionItem, 0, len(i.Items)), i.Items...)
	out.Images = append(make([]Attachment, 0, len(i.Images)), i.Images...)
	return out
}
