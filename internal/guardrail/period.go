// Package guardrail detects losing streaks over closed-trade history and shapes
// risk-cap violations into breach findings. It is pure: callers load trades and
// persist findings.
package guardrail

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// DayID formats t as YYYY-MM-DD in its own location.
func DayID(t time.Time) string { return t.Format(dayLayout) }

// WeekID formats the ISO-8601 week containing t, e.g. 2024-W05.
func WeekID(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

func MonthID(t time.Time) string { return t.Format("2006-01") }

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns the Monday that opens t's ISO week.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// ParseDay parses YYYY-MM-DD as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, loc)
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Bounds returns [start of From, start of the day after To) in loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time) {
	return StartOfDay(r.From, loc), StartOfDay(r.To, loc).AddDate(0, 0, 1)
}

// Expand widens the range to whole months, then to the whole ISO weeks around
// them, so every week touching r is loaded completely. The fringe months the
// week padding reaches into are partial; see Finding.Within.
func (r DateRange) Expand(loc *time.Location) DateRange {
	from := StartOfWeek(StartOfMonth(r.From, loc), loc)
	lastDay := StartOfMonth(r.To, loc).AddDate(0, 1, -1)
	to := StartOfWeek(lastDay, loc).AddDate(0, 0, 6)
	return DateRange{From: from, To: to}
}
