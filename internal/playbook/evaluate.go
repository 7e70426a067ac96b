package playbook

import (
	"fmt"
)

// IntendedRiskKey is the value key read as intended risk when none is supplied explicitly.
const IntendedRiskKey = "intended_risk_pct"

type EvaluateInput struct {
	Schema             Schema
	Values             map[string]any
	Thresholds         Thresholds
	Schedule           RiskSchedule
	TemplateMaxRiskPct *float64
	AccountMaxRiskPct  *float64
	IntendedRiskPct    *float64
}

type Evaluation struct {
	ComplianceScore float64      `json:"compliance_score"`
	Grade           Grade        `json:"grade"`
	RiskCapPct      *float64     `json:"risk_cap_pct"`
	CapBreakdown    CapBreakdown `json:"cap_breakdown"`
	Exceeded        bool         `json:"exceeded"`
	Messages        []string     `json:"messages"`
}

// Evaluate runs score, classify and resolve in sequence. Nil thresholds and schedule
// fall back to the defaults. The result depends only on the input.
func Evaluate(in EvaluateInput) (Evaluation, error) {
	score, err := Score(in.Schema, in.Values)
	if err != nil {
		return Evaluation{}, err
	}
	thresholds := in.Thresholds.WithDefaults()
	schedule := in.Schedule
	if schedule == nil {
		schedule = DefaultRiskSchedule()
	}
	grade := Classify(score, thresholds)

	intended := in.IntendedRiskPct
	if intended == nil {
		intended = IntendedFromValues(in.Values)
	}
	capRes := ResolveCap(CapInput{
		Grade:              grade,
		Schedule:           schedule,
		TemplateMaxRiskPct: in.TemplateMaxRiskPct,
		AccountMaxRiskPct:  in.AccountMaxRiskPct,
		IntendedRiskPct:    intended,
	})

	out := Evaluation{
		ComplianceScore: score,
		Grade:           grade,
		RiskCapPct:      capRes.CapPct,
		CapBreakdown:    capRes.Breakdown,
		Exceeded:        capRes.Exceeded,
		Messages:        []string{},
	}
	if capRes.Exceeded {
		out.Messages = append(out.Messages, capRes.Message)
	}
	for _, key := range MissingRequired(in.Schema, in.Values) {
		out.Messages = append(out.Messages, fmt.Sprintf("required field %q has no value", key))
	}
	return out, nil
}

// IntendedFromValues reads the intended risk percentage from the answers, if any.
func IntendedFromValues(values map[string]any) *float64 {
	if values == nil {
		return nil
	}
	x, ok := toFloat(values[IntendedRiskKey])
	if !ok {
		return nil
	}
	return &x
}
