// Package playbook scores checklist answers against a versioned template schema,
// classifies the score into a letter grade and resolves the permitted risk cap.
//
// Everything in this package is a pure function of its inputs: no I/O, no shared
// state, safe for unrestricted parallel use.
package playbook

import (
	"strings"
)

// FieldType is the closed set of checklist field kinds. Scoring switches over every
// member; adding a kind means extending satisfaction() and the validator tag on Field.
type FieldType string

const (
	FieldBoolean  FieldType = "boolean"
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldSelect   FieldType = "select"
	FieldRating   FieldType = "rating"
	FieldRichText FieldType = "rich_text"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldBoolean, FieldNumber, FieldText, FieldSelect, FieldRating, FieldRichText:
		return true
	}
	return false
}

type Purpose string

const (
	PurposePre     Purpose = "pre"
	PurposeIn      Purpose = "in"
	PurposePost    Purpose = "post"
	PurposeGeneric Purpose = "generic"
)

// Constraints are the optional per-field validation bounds.
type Constraints struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty" validate:"omitempty,dive,required"`
}

type Field struct {
	Key          string       `json:"key" yaml:"key" validate:"required,max=128"`
	Label        string       `json:"label" yaml:"label"`
	Type         FieldType    `json:"type" yaml:"type" validate:"required,oneof=boolean number text select rating rich_text"`
	Required     bool         `json:"required" yaml:"required"`
	Weight       *float64     `json:"weight,omitempty" yaml:"weight,omitempty" validate:"omitempty,gte=0"`
	Validation   *Constraints `json:"validation,omitempty" yaml:"validation,omitempty"`
	AllowComment bool         `json:"allow_comment" yaml:"allow_comment"`
}

// EffectiveWeight defaults an unset weight to 1.
func (f Field) EffectiveWeight() float64 {
	if f.Weight == nil {
		return 1
	}
	return *f.Weight
}

func (f Field) normalizedKey() string {
	return strings.ToLower(strings.TrimSpace(f.Key))
}

// Schema is an ordered field list; order is part of the template version.
type Schema []Field

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// thresholdGrades is the scan order of the classifier. D has no threshold: it is the floor.
var thresholdGrades = []Grade{GradeA, GradeB, GradeC}

var allGrades = []Grade{GradeA, GradeB, GradeC, GradeD}

// Thresholds maps a grade to the minimum score that earns it.
type Thresholds map[Grade]float64

func DefaultThresholds() Thresholds {
	return Thresholds{GradeA: 0.90, GradeB: 0.75, GradeC: 0.60}
}

// WithDefaults fills grades missing from t with the default thresholds.
func (t Thresholds) WithDefaults() Thresholds {
	out := DefaultThresholds()
	for g, v := range t {
		out[g] = v
	}
	return out
}

// ThresholdsFromMap converts a loosely keyed map (config files lower-case keys).
func ThresholdsFromMap(m map[string]float64) Thresholds {
	if len(m) == 0 {
		return nil
	}
	out := make(Thresholds, len(m))
	for k, v := range m {
		out[Grade(strings.ToUpper(strings.TrimSpace(k)))] = v
	}
	return out
}

// RiskSchedule maps a grade to a risk multiplier in [0,1].
type RiskSchedule map[Grade]float64

func DefaultRiskSchedule() RiskSchedule {
	return RiskSchedule{GradeA: 1.0, GradeB: 0.5, GradeC: 0.25, GradeD: 0.0}
}

func ScheduleFromMap(m map[string]float64) RiskSchedule {
	if len(m) == 0 {
		return nil
	}
	out := make(RiskSchedule, len(m))
	for k, v := range m {
		out[Grade(strings.ToUpper(strings.TrimSpace(k)))] = v
	}
	return out
}

// Template is the content of one immutable template version.
type Template struct {
	Name               string       `json:"name" yaml:"name" validate:"required,max=128"`
	Purpose            Purpose      `json:"purpose" yaml:"purpose" validate:"required,oneof=pre in post generic"`
	Description        string       `json:"description,omitempty" yaml:"description,omitempty"`
	Schema             Schema       `json:"schema" yaml:"schema" validate:"dive"`
	GradeThresholds    Thresholds   `json:"grade_thresholds,omitempty" yaml:"grade_thresholds,omitempty"`
	RiskSchedule       RiskSchedule `json:"risk_schedule,omitempty" yaml:"risk_schedule,omitempty"`
	TemplateMaxRiskPct *float64     `json:"template_max_risk_pct,omitempty" yaml:"template_max_risk_pct,omitempty" validate:"omitempty,gt=0"`
}

func Float(v float64) *float64 { return &v }
