package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EntryTypeTrade   = "trade"
	EntryTypeJournal = "journal"
)

// PlaybookResponse pins a template version and stores the evaluation it produced.
// Rows are append-only; the latest row per subject is the current answer.
type PlaybookResponse struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	UserID          uint64 `gorm:"not null;index"`
	TemplateID      uint64 `gorm:"not null;index"`
	TemplateVersion int    `gorm:"not null"`

	EntryType   string  `gorm:"type:varchar(16);not null"`
	TradeID     *uint64 `gorm:"index"`
	JournalDate *string `gorm:"type:varchar(10);index:idx_playbook_responses_journal,priority:1"`
	Symbol      *string `gorm:"type:varchar(40);index:idx_playbook_responses_journal,priority:2"`
	AccountID   *uint64

	// "values" is reserved in SQL.
	Values   datatypes.JSON `gorm:"column:values_json;not null"`
	Comments datatypes.JSON `gorm:"column:comments"`

	ComplianceScore float64        `gorm:"not null"`
	Grade           string         `gorm:"type:varchar(1);not null;index"`
	IntendedRiskPct *float64       `gorm:"column:intended_risk_pct"`
	RiskCapPct      *float64       `gorm:"column:risk_cap_pct"`
	CapBreakdown    datatypes.JSON `gorm:"column:cap_breakdown"`
	Exceeded        bool           `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (PlaybookResponse) TableName() string {
	return "playbook_responses"
}
