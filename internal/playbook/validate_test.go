package playbook

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
)

func validTemplate() Template {
	return Template{
		Name:               "Pre-Trade",
		Purpose:            PurposePre,
		Schema:             preTradeSchema(),
		GradeThresholds:    DefaultThresholds(),
		RiskSchedule:       DefaultRiskSchedule(),
		TemplateMaxRiskPct: Float(1),
	}
}

func problemsOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	return strings.Join(ve.Problems, "\n")
}

func TestValidateTemplate_Valid(t *testing.T) {
	assert.NoError(t, ValidateTemplate(validTemplate()))
}

func TestValidateTemplate_DuplicateKeysCaseInsensitive(t *testing.T) {
	tpl := validTemplate()
	tpl.Schema = append(tpl.Schema, Field{Key: " News_Checked ", Type: FieldBoolean})
	assert.Contains(t, problemsOf(t, ValidateTemplate(tpl)), "duplicate key")
}

func TestValidateTemplate_NegativeWeight(t *testing.T) {
	tpl := validTemplate()
	tpl.Schema[0].Weight = Float(-1)
	assert.Contains(t, problemsOf(t, ValidateTemplate(tpl)), "weight")
}

func TestValidateTemplate_NonMonotonicThresholds(t *testing.T) {
	tpl := validTemplate()
	tpl.GradeThresholds = Thresholds{GradeA: 0.7, GradeB: 0.8, GradeC: 0.6}
	assert.Contains(t, problemsOf(t, ValidateTemplate(tpl)), "A (0.7) is below B (0.8)")
}

func TestValidateTemplate_PartialThresholdsCheckedAgainstDefaults(t *testing.T) {
	tpl := validTemplate()
	tpl.GradeThresholds = Thresholds{GradeC: 0.95}
	assert.Contains(t, problemsOf(t, ValidateTemplate(tpl)), "B (0.75) is below C (0.95)")
}

func TestValidateTemplate_CollectsEveryProblem(t *testing.T) {
	tpl := Template{
		Purpose: "during",
		Schema: Schema{
			{Key: "", Type: FieldBoolean},
			{Key: "r", Type: FieldNumber, Validation: &Constraints{Min: Float(5), Max: Float(1)}},
			{Key: "s", Type: FieldSelect},
			{Key: "x", Type: "slider"},
		},
		GradeThresholds:    Thresholds{GradeA: 1.2, "E": 0.1},
		RiskSchedule:       RiskSchedule{GradeB: 2},
		TemplateMaxRiskPct: Float(0),
	}
	p := problemsOf(t, ValidateTemplate(tpl))
	for _, want := range []string{
		"Name is required",
		"Purpose must be one of",
		"key is empty",
		"min 5 is greater than max 1",
		"select field needs options",
		`unknown type "slider"`,
		`unexpected grade "E"`,
		"A must be within [0,1]",
		"B multiplier must be within [0,1]",
		"TemplateMaxRiskPct must be gt 0",
	} {
		assert.Contains(t, p, want)
	}
}

func TestQuickstarts_ParseAndValidate(t *testing.T) {
	items, err := Quickstarts()
	require.NoError(t, err)
	require.Len(t, items, 3)
	slugs := []string{items[0].Slug, items[1].Slug, items[2].Slug}
	assert.Equal(t, []string{"pre_risk_setup", "in_management", "post_review"}, slugs)
	assert.Equal(t, PurposeIn, items[1].Purpose)
	require.NotNil(t, items[0].TemplateMaxRiskPct)
	assert.Equal(t, 1.0, *items[0].TemplateMaxRiskPct)

	// callers get independent copies
	items[0].Schema[0].Key = "mutated"
	again, ok, err := QuickstartBySlug("pre_risk_setup")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "setup_criteria_met", again.Schema[0].Key)

	_, ok, err = QuickstartBySlug("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestYAMLRoundTrip(t *testing.T) {
	tpl := validTemplate()
	data, err := EncodeYAML(tpl, 4)
	require.NoError(t, err)
	assert.Contains(t, string(data), "format: "+ExportFormat)

	doc, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Version)
	assert.Equal(t, tpl, doc.Template)
}

func TestDecodeYAML_Rejects(t *testing.T) {
	_, err := DecodeYAML([]byte("name: x\npurpose: pre\nbogus: 1\n"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = DecodeYAML([]byte("format: other\nname: x\npurpose: pre\n"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = DecodeYAML([]byte("name: x\npurpose: pre\nschema:\n  - {key: a, type: boolean}\n  - {key: A, type: boolean}\n"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
