package playbook

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateTemplate rejects malformed templates at save time so the scorer only ever
// sees well-formed input. Every problem is collected, not just the first.
func ValidateTemplate(t Template) error {
	var problems []string
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, describeFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	problems = append(problems, SchemaProblems(t.Schema)...)
	problems = append(problems, ThresholdProblems(t.GradeThresholds)...)
	problems = append(problems, ScheduleProblems(t.RiskSchedule)...)
	return apperr.Validation(problems...)
}

// SchemaProblems checks key uniqueness (trimmed, case-insensitive), weights and bounds.
func SchemaProblems(schema Schema) []string {
	var problems []string
	seen := make(map[string]int, len(schema))
	for i, f := range schema {
		key := f.normalizedKey()
		if key == "" {
			problems = append(problems, fmt.Sprintf("schema[%d]: key is empty", i))
			continue
		}
		if j, dup := seen[key]; dup {
			problems = append(problems, fmt.Sprintf("schema[%d]: duplicate key %q (first at schema[%d])", i, f.Key, j))
		} else {
			seen[key] = i
		}
		if !f.Type.Valid() {
			problems = append(problems, fmt.Sprintf("schema[%d] %q: unknown type %q", i, f.Key, f.Type))
		}
		if f.Weight != nil {
			w := *f.Weight
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				problems = append(problems, fmt.Sprintf("schema[%d] %q: weight must be a non-negative number", i, f.Key))
			}
		}
		if c := f.Validation; c != nil {
			if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
				problems = append(problems, fmt.Sprintf("schema[%d] %q: min %s is greater than max %s", i, f.Key, formatPct(*c.Min), formatPct(*c.Max)))
			}
			if f.Type == FieldSelect {
				opts := make(map[string]struct{}, len(c.Options))
				for _, o := range c.Options {
					o = strings.TrimSpace(o)
					if _, dup := opts[o]; dup {
						problems = append(problems, fmt.Sprintf("schema[%d] %q: duplicate option %q", i, f.Key, o))
					}
					opts[o] = struct{}{}
				}
			}
		}
		if f.Type == FieldSelect && (f.Validation == nil || len(f.Validation.Options) == 0) {
			problems = append(problems, fmt.Sprintf("schema[%d] %q: select field needs options", i, f.Key))
		}
	}
	return problems
}

// ThresholdProblems requires A ≥ B ≥ C within [0,1] after defaults are applied.
func ThresholdProblems(t Thresholds) []string {
	var problems []string
	for g := range t {
		if g != GradeA && g != GradeB && g != GradeC {
			problems = append(problems, fmt.Sprintf("grade_thresholds: unexpected grade %q", g))
		}
	}
	full := t.WithDefaults()
	for _, g := range thresholdGrades {
		v := full[g]
		if math.IsNaN(v) || v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("grade_thresholds: %s must be within [0,1]", g))
		}
	}
	for i := 1; i < len(thresholdGrades); i++ {
		hi, lo := thresholdGrades[i-1], thresholdGrades[i]
		if full[hi] < full[lo] {
			problems = append(problems, fmt.Sprintf("grade_thresholds: %s (%s) is below %s (%s)", hi, formatPct(full[hi]), lo, formatPct(full[lo])))
		}
	}
	return problems
}

func ScheduleProblems(s RiskSchedule) []string {
	var problems []string
	valid := make(map[Grade]bool, len(allGrades))
	for _, g := range allGrades {
		valid[g] = true
	}
	for g, v := range s {
		if !valid[g] {
			problems = append(problems, fmt.Sprintf("risk_schedule: unexpected grade %q", g))
			continue
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("risk_schedule: %s multiplier must be within [0,1]", g))
		}
	}
	return problems
}

func describeFieldError(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ns)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", ns, fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("%s must be %s %s", ns, fe.Tag(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", ns, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", ns, fe.Tag())
}
