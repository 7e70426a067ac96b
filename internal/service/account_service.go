package service

import (
	"context"
	"math"
	"strings"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

type AccountService struct {
	Repo repository.TradingRepository
}

func (s *AccountService) Create(ctx context.Context, userID uint64, name string, maxRiskPct *float64) (*models.Account, error) {
	name = strings.TrimSpace(name)
	var problems []string
	if name == "" {
		problems = append(problems, "name is required")
	}
	problems = append(problems, riskPctProblems("account_max_risk_pct", maxRiskPct)...)
	if err := apperr.Validation(problems...); err != nil {
		return nil, err
	}
	item := &models.Account{UserID: userID, Name: name, AccountMaxRiskPct: maxRiskPct}
	if err := s.Repo.CreateAccount(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *AccountService) List(ctx context.Context, userID uint64) ([]models.Account, error) {
	items, err := s.Repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Account{}
	}
	return items, nil
}

func (s *AccountService) Get(ctx context.Context, userID, id uint64) (*models.Account, error) {
	item, err := s.Repo.GetAccount(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("account", id)
	}
	return item, nil
}

func (s *AccountService) RiskCap(ctx context.Context, userID, id uint64) (*float64, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return item.AccountMaxRiskPct, nil
}

// SetRiskCap stores the account cap; nil clears it.
func (s *AccountService) SetRiskCap(ctx context.Context, userID, id uint64, pct *float64) (*models.Account, error) {
	if err := apperr.Validation(riskPctProblems("account_max_risk_pct", pct)...); err != nil {
		return nil, err
	}
	found, err := s.Repo.SetAccountRiskCap(ctx, userID, id, pct)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("account", id)
	}
	return s.Get(ctx, userID, id)
}

func riskPctProblems(field string, pct *float64) []string {
	if pct == nil {
		return nil
	}
	if math.IsNaN(*pct) || math.IsInf(*pct, 0) || *pct <= 0 {
		return []string{field + " must be > 0"}
	}
	if *pct > 100 {
		return []string{field + " must be <= 100"}
	}
	return nil
}
