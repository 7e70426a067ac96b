package playbook

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
)

func preTradeSchema() Schema {
	return Schema{
		{Key: "setup_criteria_met", Type: FieldBoolean, Required: true, Weight: Float(1)},
		{Key: "news_checked", Type: FieldBoolean, Required: true, Weight: Float(1)},
		{Key: "intended_risk_pct", Type: FieldNumber, Required: true, Weight: Float(1), Validation: &Constraints{Min: Float(0), Max: Float(5)}},
		{Key: "rr_planned", Type: FieldNumber, Weight: Float(0.5), Validation: &Constraints{Min: Float(0), Max: Float(10)}},
	}
}

func TestEvaluate_ReadsIntendedRiskFromValues(t *testing.T) {
	ev, err := Evaluate(EvaluateInput{
		Schema:             preTradeSchema(),
		Values:             map[string]any{"setup_criteria_met": true, "news_checked": false, "intended_risk_pct": 0.8, "rr_planned": 2},
		TemplateMaxRiskPct: Float(1),
	})
	require.NoError(t, err)
	// 2.5 of 3.5 weight satisfied
	assert.InDelta(t, 2.5/3.5, ev.ComplianceScore, 1e-12)
	assert.Equal(t, GradeC, ev.Grade)
	require.NotNil(t, ev.RiskCapPct)
	assert.Equal(t, 0.25, *ev.RiskCapPct)
	assert.True(t, ev.Exceeded)
	require.Len(t, ev.Messages, 1)
	assert.Contains(t, ev.Messages[0], "0.8%")
}

func TestEvaluate_ExplicitIntendedWins(t *testing.T) {
	ev, err := Evaluate(EvaluateInput{
		Schema:             preTradeSchema(),
		Values:             map[string]any{"setup_criteria_met": true, "news_checked": true, "intended_risk_pct": 4, "rr_planned": 3},
		TemplateMaxRiskPct: Float(1),
		IntendedRiskPct:    Float(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, GradeA, ev.Grade)
	assert.False(t, ev.Exceeded)
	assert.Empty(t, ev.Messages)
}

func TestEvaluate_MissingRequiredDegradesScore(t *testing.T) {
	ev, err := Evaluate(EvaluateInput{Schema: preTradeSchema(), Values: map[string]any{"setup_criteria_met": true}})
	require.NoError(t, err)
	assert.InDelta(t, 1/3.5, ev.ComplianceScore, 1e-12)
	assert.Equal(t, GradeD, ev.Grade)
	joined := strings.Join(ev.Messages, "\n")
	assert.Contains(t, joined, `"news_checked"`)
	assert.Contains(t, joined, `"intended_risk_pct"`)
}

func TestEvaluate_Reproducible(t *testing.T) {
	in := EvaluateInput{
		Schema:             preTradeSchema(),
		Values:             map[string]any{"setup_criteria_met": true, "news_checked": true, "intended_risk_pct": 1.2, "rr_planned": 0.1},
		Thresholds:         Thresholds{GradeA: 0.95, GradeB: 0.8, GradeC: 0.5},
		Schedule:           RiskSchedule{GradeA: 1, GradeB: 0.6, GradeC: 0.3, GradeD: 0},
		TemplateMaxRiskPct: Float(1.5),
		AccountMaxRiskPct:  Float(1.1),
	}
	first, err := Evaluate(in)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Evaluate(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(first)
	assert.JSONEq(t, string(a), string(b))
}

func TestEvaluate_PropagatesComputationError(t *testing.T) {
	_, err := Evaluate(EvaluateInput{Schema: Schema{{Key: "x", Type: "matrix"}}})
	assert.ErrorIs(t, err, apperr.ErrComputation)
}
