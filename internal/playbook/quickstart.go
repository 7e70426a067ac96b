package playbook

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/quickstarts.yaml
var quickstartYAML []byte

type Quickstart struct {
	Slug     string `json:"slug" yaml:"slug"`
	Template `yaml:",inline"`
}

var (
	quickstartOnce sync.Once
	quickstarts    []Quickstart
	quickstartErr  error
)

// Quickstarts returns the built-in starter templates. The catalog is parsed and
// validated once; callers get a fresh copy.
func Quickstarts() ([]Quickstart, error) {
	quickstartOnce.Do(func() {
		var items []Quickstart
		if err := yaml.Unmarshal(quickstartYAML, &items); err != nil {
			quickstartErr = fmt.Errorf("parse quickstart catalog: %w", err)
			return
		}
		for _, q := range items {
			if err := ValidateTemplate(q.Template); err != nil {
				quickstartErr = fmt.Errorf("quickstart %s: %w", q.Slug, err)
				return
			}
		}
		quickstarts = items
	})
	if quickstartErr != nil {
		return nil, quickstartErr
	}
	out := make([]Quickstart, len(quickstarts))
	for i, q := range quickstarts {
		out[i] = Quickstart{Slug: q.Slug, Template: q.Template.Clone()}
	}
	return out, nil
}

func QuickstartBySlug(slug string) (Quickstart, bool, error) {
	items, err := Quickstarts()
	if err != nil {
		return Quickstart{}, false, err
	}
	for _, q := range items {
		if q.Slug == slug {
			return q, true, nil
		}
	}
	return Quickstart{}, false, nil
}

// Clone deep-copies the template so callers can mutate it freely.
func (t Template) Clone() Template {
	out := t
	out.Schema = make(Schema, len(t.Schema))
	for i, f := range t.Schema {
		if f.Weight != nil {
			f.Weight = Float(*f.Weight)
		}
		if f.Validation != nil {
			c := *f.Validation
			if c.Min != nil {
				c.Min = Float(*c.Min)
			}
			if c.Max != nil {
				c.Max = Float(*c.Max)
			}
			c.Options = append([]string(nil), c.Options...)
			f.Validation = &c
		}
		out.Schema[i] = f
	}
	if t.GradeThresholds != nil {
		out.GradeThresholds = make(Thresholds, len(t.GradeThresholds))
		for g, v := range t.GradeThresholds {
			out.GradeThresholds[g] = v
		}
	}
	if t.RiskSchedule != nil {
		out.RiskSchedule = make(RiskSchedule, len(t.RiskSchedule))
		for g, v := range t.RiskSchedule {
			out.RiskSchedule[g] = v
		}
	}
	if t.TemplateMaxRiskPct != nil {
		out.TemplateMaxRiskPct = Float(*t.TemplateMaxRiskPct)
	}
	return out
}
