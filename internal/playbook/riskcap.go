package playbook

import (
	"fmt"
	"strconv"
)

type CapSource string

const (
	CapSourceTemplate CapSource = "template"
	CapSourceSchedule CapSource = "schedule"
	CapSourceAccount  CapSource = "account"
)

// CapCandidate is one input to the effective cap. A nil Value means "not set".
type CapCandidate struct {
	Value *float64 `json:"value"`
	Set   bool     `json:"set"`
	Note  string   `json:"note"`
}

func (c CapCandidate) String() string {
	if c.Value == nil {
		return "not set"
	}
	return formatPct(*c.Value)
}

// CapBreakdown records every candidate so a user can see which limit bound the cap.
type CapBreakdown struct {
	Template CapCandidate `json:"template"`
	Schedule CapCandidate `json:"schedule"`
	Account  CapCandidate `json:"account"`
	Binding  CapSource    `json:"binding,omitempty"`
}

type CapInput struct {
	Grade              Grade
	Schedule           RiskSchedule
	TemplateMaxRiskPct *float64
	AccountMaxRiskPct  *float64
	IntendedRiskPct    *float64
}

type CapResult struct {
	CapPct    *float64
	Breakdown CapBreakdown
	Exceeded  bool
	Message   string
}

// ResolveCap takes the minimum of the template cap, the grade-scheduled cap and the
// account cap, ignoring unset candidates. The schedule entry scales the template cap
// when one is set and is read as an absolute percentage otherwise. Ties bind to the
// first candidate in template, schedule, account order.
func ResolveCap(in CapInput) CapResult {
	var bd CapBreakdown
	bd.Template = candidate(in.TemplateMaxRiskPct, "template max risk")
	bd.Account = candidate(in.AccountMaxRiskPct, "account max risk")

	if mult, ok := in.Schedule[in.Grade]; ok {
		if in.TemplateMaxRiskPct != nil {
			v := mult * *in.TemplateMaxRiskPct
			bd.Schedule = CapCandidate{
				Value: &v,
				Set:   true,
				Note:  fmt.Sprintf("grade %s multiplier %s x template %s", in.Grade, formatPct(mult), formatPct(*in.TemplateMaxRiskPct)),
			}
		} else {
			v := mult
			bd.Schedule = CapCandidate{Value: &v, Set: true, Note: fmt.Sprintf("grade %s scheduled cap", in.Grade)}
		}
	} else {
		bd.Schedule = candidate(nil, fmt.Sprintf("no schedule entry for grade %s", in.Grade))
	}

	var capPct *float64
	ordered := []struct {
		src CapSource
		c   CapCandidate
	}{
		{CapSourceTemplate, bd.Template},
		{CapSourceSchedule, bd.Schedule},
		{CapSourceAccount, bd.Account},
	}
	for _, o := range ordered {
		if o.c.Value == nil {
			continue
		}
		if capPct == nil || *o.c.Value < *capPct {
			v := *o.c.Value
			capPct = &v
			bd.Binding = o.src
		}
	}

	res := CapResult{CapPct: capPct, Breakdown: bd}
	if capPct != nil && in.IntendedRiskPct != nil && *in.IntendedRiskPct > *capPct {
		res.Exceeded = true
		res.Message = fmt.Sprintf("Intended risk %s%% exceeds cap %s%% for grade %s (bound by %s)",
			formatPct(*in.IntendedRiskPct), formatPct(*capPct), in.Grade, bd.Binding)
	}
	return res
}

func candidate(v *float64, note string) CapCandidate {
	if v == nil {
		return CapCandidate{Note: note}
	}
	x := *v
	return CapCandidate{Value: &x, Set: true, Note: note}
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
