package models

import "time"

// DraftInfo describes an inspection form that is still being filled in.
type DraftInfo struct {
	ID           string    `json:"id"`
	PropertyType string    `json:"propertyType,omitempty"`
	Template     string    `json:"template"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}
