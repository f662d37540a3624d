package models

// ItemDefinition describes a checklist category before any inspection data is entered.
type ItemDefinition struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NewItem builds a fresh, unchecked item rated good with empty notes.
func (d ItemDefinition) NewItem() InspectionItem {
	return InspectionItem{
		ID:        d.ID,
		Name:      d.Name,
		Checked:   false,
		Notes:     "",
		Condition: ConditionGood,
	}
}

// ChecklistTemplate is the set of categories inspected for one property type.
// Templates are loaded from YAML files such as:
//
//	name: Apartamento
//	property_type: apartment
//	items:
//	  - id: "1"
//	    name: Paredes e Teto
type ChecklistTemplate struct {
	Name         string           `json:"name" yaml:"name"`
	PropertyType string           `json:"propertyType" yaml:"property_type"`
	Items        []ItemDefinition `json:"items" yaml:"items"`
}
