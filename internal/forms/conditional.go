package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/telodox/portal/internal/models"
)

// EvaluateConditional reports whether a field governed by rule is visible for data.
// A nil rule is always visible. Unknown operators hide nothing.
func EvaluateConditional(rule *models.ConditionalRule, data map[string]any) bool {
	if rule == nil || rule.Field == "" {
		return true
	}

	actual := data[rule.Field]
	switch rule.Operator {
	case models.OpEquals:
		return looselyEqual(actual, rule.Value)
	case models.OpNotEquals:
		return !looselyEqual(actual, rule.Value)
	case models.OpContains:
		return contains(actual, rule.Value)
	case models.OpGreaterThan:
		a, okA := toNumber(actual)
		b, okB := toNumber(rule.Value)
		return okA && okB && a > b
	case models.OpLessThan:
		a, okA := toNumber(actual)
		b, okB := toNumber(rule.Value)
		return okA && okB && a < b
	default:
		return true
	}
}

func looselyEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return stringify(a) == stringify(b)
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case nil:
		return false
	case []any:
		for _, item := range h {
			if looselyEqual(item, needle) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range h {
			if item == stringify(needle) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(stringify(haystack), stringify(needle))
	}
}

// stringify renders a decoded JSON value the way it reads in a form input.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case json.Number:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// toNumber coerces a decoded JSON value to a number. Values with no numeric reading
// report false.
func toNumber(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	case bool:
		if v {
			f = 1
		}
	default:
		return 0, false
	}
	return f, !math.IsNaN(f)
}
