package models

import (
	"time"

	"gorm.io/datatypes"
)

// Breach is a ledger row. Rows are unique per (user, rule, scope, period, subject);
// re-running a scan updates details and never touches acknowledgment.
type Breach struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `gorm:"not null;uniqueIndex:uq_breach_key,priority:1"`
	RuleKey    string `gorm:"type:varchar(32);not null;uniqueIndex:uq_breach_key,priority:2"`
	Scope      string `gorm:"type:varchar(8);not null;uniqueIndex:uq_breach_key,priority:3;index"`
	DateOrWeek string `gorm:"type:varchar(16);not null;uniqueIndex:uq_breach_key,priority:4"`
	Subject    string `gorm:"type:varchar(80);not null;uniqueIndex:uq_breach_key,priority:5"`

	// [PeriodStart, PeriodEnd) spans the period; range filters test overlap.
	PeriodStart time.Time      `gorm:"not null;index"`
	PeriodEnd   time.Time      `gorm:"not null"`
	AccountID   *uint64        `gorm:"index"`
	Details     datatypes.JSON `gorm:"column:details"`
	ScanRunID   string         `gorm:"type:varchar(26)"`

	Acknowledged   bool       `gorm:"not null;index"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Breach) TableName() string {
	return "breaches"
}
