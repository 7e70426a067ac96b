package guardrail

import (
	"fmt"
	"time"
)

type RiskCapViolation struct {
	TradeID     *uint64
	JournalDate string
	Symbol      string
	AccountID   *uint64
	Grade       string
	IntendedPct float64
	CapPct      float64
	ResponseID  uint64
	At          time.Time
}

// Subject distinguishes several risk-cap breaches recorded on the same day.
func (v RiskCapViolation) Subject() string {
	if v.TradeID != nil {
		return fmt.Sprintf("trade:%d", *v.TradeID)
	}
	return fmt.Sprintf("journal:%s:%s", v.JournalDate, v.Symbol)
}

// RiskCapFinding shapes a violation into a trade-scoped finding keyed by its day.
func RiskCapFinding(v RiskCapViolation, loc *time.Location) Finding {
	start := StartOfDay(v.At, loc)
	period := DayID(start)
	if v.TradeID == nil && v.JournalDate != "" {
		if d, err := ParseDay(v.JournalDate, loc); err == nil {
			start, period = d, v.JournalDate
		}
	}
	details := map[string]any{
		"intended_risk_pct": v.IntendedPct,
		"cap":               v.CapPct,
		"grade":             v.Grade,
		"response_id":       v.ResponseID,
	}
	if v.TradeID != nil {
		details["trade_id"] = *v.TradeID
	}
	if v.Symbol != "" {
		details["symbol"] = v.Symbol
	}
	if v.AccountID != nil {
		details["account_id"] = *v.AccountID
	}
	return Finding{
		RuleKey:     RuleRiskCapExceeded,
		Scope:       ScopeTrade,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, 1),
		Subject:     v.Subject(),
		Details:     details,
	}
}
