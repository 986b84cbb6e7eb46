package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// FormType identifies the onboarding stage a template belongs to.
type FormType string

const (
	FormTypeKYC     FormType = "kyc"
	FormTypeFUSF    FormType = "fusf"
	FormTypeMSA     FormType = "msa"
	FormTypeInterop FormType = "interop"
	FormTypeCustom  FormType = "custom"
)

// Valid reports whether t is a known form type.
func (t FormType) Valid() bool {
	switch t {
	case FormTypeKYC, FormTypeFUSF, FormTypeMSA, FormTypeInterop, FormTypeCustom:
		return true
	}
	return false
}

// FieldType is the input kind of a form field.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldEmail     FieldType = "email"
	FieldPhone     FieldType = "phone"
	FieldNumber    FieldType = "number"
	FieldTextarea  FieldType = "textarea"
	FieldSelect    FieldType = "select"
	FieldRadio     FieldType = "radio"
	FieldCheckbox  FieldType = "checkbox"
	FieldDate      FieldType = "date"
	FieldFile      FieldType = "file"
	FieldSignature FieldType = "signature"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldPhone, FieldNumber, FieldTextarea, FieldSelect,
		FieldRadio, FieldCheckbox, FieldDate, FieldFile, FieldSignature:
		return true
	}
	return false
}

// FieldValidation holds the optional rule-set of a field. Nil members are not checked.
type FieldValidation struct {
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength     *int     `json:"minLength,omitempty" yaml:"min_length,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty" yaml:"max_length,omitempty"`
	CustomMessage string   `json:"customMessage,omitempty" yaml:"custom_message,omitempty"`
}

// FieldOption is one choice of a select or radio field.
type FieldOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// ConditionalOperator compares a referenced field's value in a ConditionalRule.
type ConditionalOperator string

const (
	OpEquals      ConditionalOperator = "equals"
	OpNotEquals   ConditionalOperator = "not_equals"
	OpContains    ConditionalOperator = "contains"
	OpGreaterThan ConditionalOperator = "greater_than"
	OpLessThan    ConditionalOperator = "less_than"
)

// ConditionalRule makes a field visible only when another field's value matches.
type ConditionalRule struct {
	Field    string              `json:"field" yaml:"field"`
	Operator ConditionalOperator `json:"operator" yaml:"operator"`
	Value    any                 `json:"value" yaml:"value"`
}

// FormField is one input definition of a template.
type FormField struct {
	ID          string           `json:"id" yaml:"id"`
	Type        FieldType        `json:"type" yaml:"type"`
	Name        string           `json:"name" yaml:"name"`
	Label       string           `json:"label" yaml:"label"`
	Placeholder string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool             `json:"required" yaml:"required"`
	Validation  *FieldValidation `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options     []FieldOption    `json:"options,omitempty" yaml:"options,omitempty"`
	Conditional *ConditionalRule `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Order       int              `json:"order" yaml:"order"`
}

// DisplayLabel is the label used in validation messages.
func (f FormField) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// FormSettings controls client-side behaviour of a template.
type FormSettings struct {
	SaveProgress        bool   `json:"save_progress" yaml:"save_progress"`
	ShowProgressBar     bool   `json:"show_progress_bar" yaml:"show_progress_bar"`
	ConfirmationMessage string `json:"confirmation_message,omitempty" yaml:"confirmation_message,omitempty"`
	RedirectURL         string `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
}

// FormTemplate is a versioned, tenant-owned form schema. A stored version is never
// edited in place; Bump produces the next version.
type FormTemplate struct {
	TemplateID  uuid.UUID    `json:"id"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	FormType    FormType     `json:"form_type"`
	Fields      []FormField  `json:"fields"`
	Settings    FormSettings `json:"settings"`
	Version     int          `json:"version"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Validate checks the template schema: known types, unique field names and patterns
// that compile.
func (t *FormTemplate) Validate() error {
	if !t.FormType.Valid() {
		return fmt.Errorf("invalid form type %q", t.FormType)
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %q has no name", f.ID)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("field %q has invalid type %q", f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		if f.Validation != nil && f.Validation.Pattern != "" {
			if _, err := regexp.Compile(f.Validation.Pattern); err != nil {
				return fmt.Errorf("field %q has invalid pattern: %w", f.Name, err)
			}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Bump returns a copy of the template as the next version with a fresh ID.
func (t *FormTemplate) Bump(fields []FormField, now time.Time) (*FormTemplate, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	next := *t
	next.TemplateID = id
	next.Fields = fields
	next.Version = t.Version + 1
	next.CreatedAt = now
	next.UpdatedAt = now
	return &next, nil
}
