package playbook

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
)

const ratingScale = 5.0

// Score computes Σ(weight×satisfaction)/Σweight over fields with weight > 0.
// A schema with no positive weight scores 1. Missing values score 0 for their slot;
// they never abort the evaluation.
func Score(schema Schema, values map[string]any) (float64, error) {
	var total, satisfied float64
	for _, f := range schema {
		w := f.EffectiveWeight()
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		s, err := satisfaction(f, values[f.Key])
		if err != nil {
			return 0, apperr.Computation("score", err)
		}
		total += w
		satisfied += w * s
	}
	if total == 0 {
		return 1, nil
	}
	return clamp01(satisfied / total), nil
}

// MissingRequired lists required fields without a present value, in schema order.
func MissingRequired(schema Schema, values map[string]any) []string {
	var out []string
	for _, f := range schema {
		if f.Required && !present(values[f.Key]) {
			out = append(out, f.Key)
		}
	}
	return out
}

func satisfaction(f Field, v any) (float64, error) {
	switch f.Type {
	case FieldBoolean:
		if b, ok := v.(bool); ok && b {
			return 1, nil
		}
		return 0, nil
	case FieldRating:
		x, ok := toFloat(v)
		if !ok {
			return 0, nil
		}
		return clamp01(x / ratingScale), nil
	case FieldNumber:
		x, ok := toFloat(v)
		if !ok {
			return 0, nil
		}
		if c := f.Validation; c != nil {
			if c.Min != nil && x < *c.Min {
				return 0, nil
			}
			if c.Max != nil && x > *c.Max {
				return 0, nil
			}
		}
		return 1, nil
	case FieldSelect, FieldText, FieldRichText:
		if present(v) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("field %q: unknown type %q", f.Key, f.Type)
}

func present(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case json.Number:
		return strings.TrimSpace(string(t)) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// toFloat accepts JSON numbers, Go numerics and numeric strings. NaN and ±Inf are rejected.
func toFloat(v any) (float64, bool) {
	var x float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		x = t
	case float32:
		x = float64(t)
	case int:
		x = float64(t)
	case int64:
		x = float64(t)
	case int32:
		x = float64(t)
	case uint64:
		x = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		x = f
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
