// Package forms validates submitted form data against a template's field schema.
package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/telodox/portal/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// phonePattern is applied after phoneSeparators are removed.
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneSeparators = regexp.MustCompile(`[\s\-()]`)
)

// IsEmail reports whether s has the generic shape of an e-mail address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Validate checks data against fields and returns one message per failed rule, in
// field declaration order. An empty result means the data is valid.
//
// Fields hidden by a conditional rule are not validated.
func Validate(data map[string]any, fields []models.FormField) []string {
	var errs []string
	for _, field := range fields {
		if !EvaluateConditional(field.Conditional, data) {
			continue
		}
		errs = append(errs, validateField(field, data[field.Name])...)
	}
	return errs
}

func validateField(field models.FormField, value any) []string {
	label := field.DisplayLabel()

	if field.Required {
		if isEmpty(value) {
			return []string{label + " is required"}
		}
		if field.Type == models.FieldCheckbox && value != true {
			return []string{label + " must be checked"}
		}
	}

	// Empty optional values never fail format checks.
	if isEmpty(value) || value == false {
		return nil
	}

	var errs []string
	if v := field.Validation; v != nil {
		str := stringify(value)

		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil || !re.MatchString(str) {
				if v.CustomMessage != "" {
					errs = append(errs, v.CustomMessage)
				} else {
					errs = append(errs, label+" format is invalid")
				}
			}
		}

		length := utf8.RuneCountInString(str)
		if v.MinLength != nil && *v.MinLength > 0 && length < *v.MinLength {
			errs = append(errs, fmt.Sprintf("%s must be at least %d characters", label, *v.MinLength))
		}
		if v.MaxLength != nil && *v.MaxLength > 0 && length > *v.MaxLength {
			errs = append(errs, fmt.Sprintf("%s must be no more than %d characters", label, *v.MaxLength))
		}

		if n, ok := toNumber(value); ok {
			if v.Min != nil && n < *v.Min {
				errs = append(errs, fmt.Sprintf("%s must be at least %s", label, formatNumber(*v.Min)))
			}
			if v.Max != nil && n > *v.Max {
				errs = append(errs, fmt.Sprintf("%s must be no more than %s", label, formatNumber(*v.Max)))
			}
		}
	}

	switch field.Type {
	case models.FieldEmail:
		if !IsEmail(stringify(value)) {
			errs = append(errs, label+" must be a valid email address")
		}
	case models.FieldPhone:
		if !phonePattern.MatchString(phoneSeparators.ReplaceAllString(stringify(value), "")) {
			errs = append(errs, label+" must be a valid phone number")
		}
	}

	return errs
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
