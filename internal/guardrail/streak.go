package guardrail

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type RuleKey string

const (
	RuleLossStreakDay    RuleKey = "loss_streak_day"
	RuleLosingDaysWeek   RuleKey = "losing_days_week"
	RuleLosingWeeksMonth RuleKey = "losing_weeks_month"
	RuleRiskCapExceeded  RuleKey = "risk_cap_exceeded"
)

type Scope string

const (
	ScopeDay   Scope = "day"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
	ScopeTrade Scope = "trade"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeDay, ScopeWeek, ScopeMonth, ScopeTrade:
		return true
	}
	return false
}

// Rules holds the streak thresholds. A threshold of 0 disables its rule.
type Rules struct {
	MaxLossesInRowDay        int
	MaxLosingDaysInRowWeek   int
	MaxLosingWeeksInRowMonth int
}

type Trade struct {
	ID       uint64
	Symbol   string
	NetPnL   decimal.Decimal
	ClosedAt time.Time
}

func (t Trade) Losing() bool { return t.NetPnL.IsNegative() }

// Finding is a breach the caller should upsert on (rule, scope, period, subject).
type Finding struct {
	RuleKey     RuleKey
	Scope       Scope
	Period      string
	PeriodStart time.Time
	PeriodEnd   time.Time // exclusive
	Subject     string
	Details     map[string]any
}

// Within reports whether the finding's whole period lies inside [from, to).
// A period cut by the loaded window was evaluated on partial data.
func (f Finding) Within(from, to time.Time) bool {
	return !f.PeriodStart.Before(from) && !f.PeriodEnd.After(to)
}

// Day is one trading day: the trades closed on it, chronological.
type Day struct {
	ID     string
	Start  time.Time
	Trades []Trade
	Net    decimal.Decimal
}

func (d Day) Losing() bool { return d.Net.IsNegative() }

// Week is the trading days of one ISO week.
type Week struct {
	ID    string
	Start time.Time
	Days  []Day
}

// MonthWeek is the in-month slice of a week; a week spanning two months
// contributes only its own days to each.
type MonthWeek struct {
	WeekID string
	Days   []Day
	Net    decimal.Decimal
}

type Month struct {
	ID    string
	Start time.Time
	Weeks []MonthWeek
}

// GroupDays buckets trades by calendar day in loc. Days without trades are absent.
// Trades inside a day are ordered by close time, then id.
func GroupDays(trades []Trade, loc *time.Location) []Day {
	sorted := append([]Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ClosedAt.Equal(sorted[j].ClosedAt) {
			return sorted[i].ClosedAt.Before(sorted[j].ClosedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	var days []Day
	for _, t := range sorted {
		start := StartOfDay(t.ClosedAt, loc)
		id := DayID(start)
		if n := len(days); n == 0 || days[n-1].ID != id {
			days = append(days, Day{ID: id, Start: start, Net: decimal.Zero})
		}
		d := &days[len(days)-1]
		d.Trades = append(d.Trades, t)
		d.Net = d.Net.Add(t.NetPnL)
	}
	return days
}

// GroupWeeks expects days in chronological order.
func GroupWeeks(days []Day) []Week {
	var weeks []Week
	for _, d := range days {
		id := WeekID(d.Start)
		if n := len(weeks); n == 0 || weeks[n-1].ID != id {
			weeks = append(weeks, Week{ID: id, Start: StartOfWeek(d.Start, d.Start.Location())})
		}
		w := &weeks[len(weeks)-1]
		w.Days = append(w.Days, d)
	}
	return weeks
}

// GroupMonths expects days in chronological order.
func GroupMonths(days []Day) []Month {
	var months []Month
	for _, d := range days {
		id := MonthID(d.Start)
		if n := len(months); n == 0 || months[n-1].ID != id {
			months = append(months, Month{ID: id, Start: StartOfMonth(d.Start, d.Start.Location())})
		}
		m := &months[len(months)-1]
		wid := WeekID(d.Start)
		if n := len(m.Weeks); n == 0 || m.Weeks[n-1].WeekID != wid {
			m.Weeks = append(m.Weeks, MonthWeek{WeekID: wid, Net: decimal.Zero})
		}
		w := &m.Weeks[len(m.Weeks)-1]
		w.Days = append(w.Days, d)
		w.Net = w.Net.Add(d.Net)
	}
	return months
}

// longestRun returns the longest run of consecutive true values and where it ends.
func longestRun(n int, losing func(int) bool) (best, end int) {
	run := 0
	end = -1
	for i := 0; i < n; i++ {
		if losing(i) {
			run++
			if run > best {
				best, end = run, i
			}
		} else {
			run = 0
		}
	}
	return best, end
}

// EvaluateDay reports a loss_streak_day finding when consecutive losing trades
// within the day reach the threshold.
func EvaluateDay(d Day, threshold int) *Finding {
	if threshold <= 0 {
		return nil
	}
	run, end := longestRun(len(d.Trades), func(i int) bool { return d.Trades[i].Losing() })
	if run < threshold {
		return nil
	}
	ids := make([]uint64, 0, run)
	for _, t := range d.Trades[end-run+1 : end+1] {
		ids = append(ids, t.ID)
	}
	return &Finding{
		RuleKey:     RuleLossStreakDay,
		Scope:       ScopeDay,
		Period:      d.ID,
		PeriodStart: d.Start,
		PeriodEnd:   d.Start.AddDate(0, 0, 1),
		Details: map[string]any{
			"consecutive_losses": run,
			"max":                threshold,
			"trade_ids":          ids,
			"net_pnl":            d.Net.String(),
		},
	}
}

// EvaluateWeek reports a losing_days_week finding when consecutive losing trading
// days within the ISO week reach the threshold.
func EvaluateWeek(w Week, threshold int) *Finding {
	if threshold <= 0 {
		return nil
	}
	run, end := longestRun(len(w.Days), func(i int) bool { return w.Days[i].Losing() })
	if run < threshold {
		return nil
	}
	dayIDs := make([]string, 0, run)
	for _, d := range w.Days[end-run+1 : end+1] {
		dayIDs = append(dayIDs, d.ID)
	}
	return &Finding{
		RuleKey:     RuleLosingDaysWeek,
		Scope:       ScopeWeek,
		Period:      w.ID,
		PeriodStart: w.Start,
		PeriodEnd:   w.Start.AddDate(0, 0, 7),
		Details: map[string]any{
			"consecutive_losing_days": run,
			"max":                     threshold,
			"days":                    dayIDs,
		},
	}
}

// EvaluateMonth reports a losing_weeks_month finding when consecutive losing weeks,
// each measured over its in-month days, reach the threshold.
func EvaluateMonth(m Month, threshold int) *Finding {
	if threshold <= 0 {
		return nil
	}
	run, end := longestRun(len(m.Weeks), func(i int) bool { return m.Weeks[i].Net.IsNegative() })
	if run < threshold {
		return nil
	}
	weekIDs := make([]string, 0, run)
	for _, w := range m.Weeks[end-run+1 : end+1] {
		weekIDs = append(weekIDs, w.WeekID)
	}
	return &Finding{
		RuleKey:     RuleLosingWeeksMonth,
		Scope:       ScopeMonth,
		Period:      m.ID,
		PeriodStart: m.Start,
		PeriodEnd:   m.Start.AddDate(0, 1, 0),
		Details: map[string]any{
			"consecutive_losing_weeks": run,
			"max":                      threshold,
			"weeks":                    weekIDs,
		},
	}
}

// Evaluate runs every streak rule over trades and returns findings ordered day,
// week, month. At most one finding per rule and period.
func Evaluate(trades []Trade, rules Rules, loc *time.Location) []Finding {
	days := GroupDays(trades, loc)
	var out []Finding
	for _, d := range days {
		if f := EvaluateDay(d, rules.MaxLossesInRowDay); f != nil {
			out = append(out, *f)
		}
	}
	for _, w := range GroupWeeks(days) {
		if f := EvaluateWeek(w, rules.MaxLosingDaysInRowWeek); f != nil {
			out = append(out, *f)
		}
	}
	for _, m := range GroupMonths(days) {
		if f := EvaluateMonth(m, rules.MaxLosingWeeksInRowMonth); f != nil {
			out = append(out, *f)
		}
	}
	return out
}
