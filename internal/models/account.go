package models

import "time"

// Account is a trading account owned by one user.
type Account struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	Name   string `gorm:"type:varchar(120);not null"`

	// AccountMaxRiskPct caps risk per trade for this account; nil means no cap.
	AccountMaxRiskPct *float64 `gorm:"column:account_max_risk_pct"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
