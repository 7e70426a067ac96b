package models

import "time"

const (
	EnforcementOff   = "off"
	EnforcementWarn  = "warn"
	EnforcementBlock = "block"
)

// TradingRules holds one user's guardrail thresholds. A threshold of 0 disables its rule.
type TradingRules struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`

	MaxLossesRowDay           int `gorm:"not null"`
	MaxLosingDaysStreakWeek   int `gorm:"not null"`
	MaxLosingWeeksStreakMonth int `gorm:"not null"`

	AlertsEnabled   bool   `gorm:"not null"`
	EnforcementMode string `gorm:"type:varchar(8);not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (TradingRules) TableName() string {
	return "trading_rules"
}
