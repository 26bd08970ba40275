package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ConfigType is the closed set of UI form categories a tenant can configure.
type ConfigType string

const (
	ConfigTypeRegistration ConfigType = "patient-registration"
	ConfigTypeSearch       ConfigType = "patient-search"
	ConfigTypeDetails      ConfigType = "patient-details"
	ConfigTypeEncounters   ConfigType = "encounters"
	ConfigTypeBilling      ConfigType = "billing"
)

// Valid reports whether t is one of the known config types.
func (t ConfigType) Valid() bool {
	switch t {
	case ConfigTypeRegistration, ConfigTypeSearch, ConfigTypeDetails,
		ConfigTypeEncounters, ConfigTypeBilling:
		return true
	}
	return false
}

// FieldType identifies what a form field renders as. header and static are
// presentation-only and never accept user input.
type FieldType string

const (
	FieldTypeHeader   FieldType = "header"
	FieldTypeStatic   FieldType = "static"
	FieldTypeText     FieldType = "text"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
)

// FieldValidation holds the optional constraint set attached to a form field.
// Required is a pointer so that an absent value means "required" (the default)
// while an explicit false makes the field optional.
type FieldValidation struct {
	Required  *bool  `json:"required,omitempty"`
	MinLength *int   `json:"min_length,omitempty"`
	MaxLength *int   `json:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// FormField is a single element of a form description: either an input field
// (text, select, checkbox) or a presentation item (header, static).
type FormField struct {
	ID         string           `json:"id"`
	Type       FieldType        `json:"type"`
	Label      string           `json:"label,omitempty"`   // display label for input fields
	Name       string           `json:"name,omitempty"`    // submission key; unused for header/static
	Options    []string         `json:"options,omitempty"` // advisory choices for select/checkbox
	Content    string           `json:"content,omitempty"` // text for header/static items
	Default    interface{}      `json:"default,omitempty"` // string or bool literal
	Validation *FieldValidation `json:"validation,omitempty"`
}

// FieldList is an ordered field sequence stored as a JSON document column.
type FieldList []FormField

func (f FieldList) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FieldList) Scan(value interface{}) error {
	if value == nil {
		*f = FieldList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return errors.New("unsupported type for FieldList")
	}
}

// UIConfig is the top-level per-tenant form description document. The
// (tenant_id, config_type) pair is unique across the store.
type UIConfig struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TenantID    string     `gorm:"size:100;not null;uniqueIndex:idx_tenant_config_type" json:"tenant_id"`
	ConfigType  ConfigType `gorm:"size:50;not null;uniqueIndex:idx_tenant_config_type" json:"type"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Fields      FieldList  `gorm:"type:text" json:"fields"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (UIConfig) TableName() string { return "ui_configs" }
