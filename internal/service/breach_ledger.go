package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

// BreachLedger is the read and acknowledge side of the breach store.
type BreachLedger struct {
	Repo     repository.LedgerRepository
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

type BreachFilter struct {
	// Start and End are calendar days; End is inclusive.
	Start        *time.Time
	End          *time.Time
	Scopes       []string
	RuleKey      string
	Acknowledged *bool
	Limit        int
	Offset       int
}

func (l *BreachLedger) location() *time.Location {
	if l.Location == nil {
		return time.UTC
	}
	return l.Location
}

// List returns breaches whose period overlaps the filter's days, newest first.
func (l *BreachLedger) List(ctx context.Context, userID uint64, f BreachFilter) ([]BreachRecord, error) {
	var problems []string
	scopes := make([]string, 0, len(f.Scopes))
	for _, raw := range f.Scopes {
		sc := guardrail.Scope(strings.ToLower(strings.TrimSpace(raw)))
		if sc == "" {
			continue
		}
		if !sc.Valid() {
			problems = append(problems, fmt.Sprintf("unknown scope %q", raw))
			continue
		}
		scopes = append(scopes, string(sc))
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		problems = append(problems, "end must not be before start")
	}
	if err := apperr.Validation(problems...); err != nil {
		return nil, err
	}

	params := repository.ListBreachesParams{
		UserID:       userID,
		Scopes:       scopes,
		Acknowledged: f.Acknowledged,
		Limit:        f.Limit,
		Offset:       f.Offset,
	}
	loc := l.location()
	if f.Start != nil {
		start := guardrail.StartOfDay(*f.Start, loc)
		params.Start = &start
	}
	if f.End != nil {
		end := guardrail.StartOfDay(*f.End, loc).AddDate(0, 0, 1)
		params.End = &end
	}
	if rk := strings.TrimSpace(f.RuleKey); rk != "" {
		params.RuleKey = &rk
	}
	items, err := l.Repo.ListBreaches(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]BreachRecord, 0, len(items))
	for i := range items {
		out = append(out, breachFromModel(&items[i]))
	}
	return out, nil
}

// Acknowledge flips the breach to acknowledged. Repeating it is a no-op; an unknown
// id (or another user's breach) is NotFound.
func (l *BreachLedger) Acknowledge(ctx context.Context, userID, id uint64) (BreachRecord, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	item, err := l.Repo.AcknowledgeBreach(ctx, userID, id, now)
	if err != nil {
		return BreachRecord{}, err
	}
	if item == nil {
		return BreachRecord{}, apperr.NotFound("breach", id)
	}
	if l.Logger != nil {
		l.Logger.Info("breach acknowledged",
			zap.Uint64("user_id", userID),
			zap.Uint64("breach_id", id),
			zap.String("rule_key", item.RuleKey),
		)
	}
	return breachFromModel(item), nil
}
