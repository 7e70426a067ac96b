package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlaybookTemplate is one immutable version of a checklist template. Editing
// publishes a new row with the next version for the same (user, name).
type PlaybookTemplate struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	UserID  uint64 `gorm:"not null;uniqueIndex:uq_playbook_template_version,priority:1"`
	Name    string `gorm:"type:varchar(128);not null;uniqueIndex:uq_playbook_template_version,priority:2"`
	Version int    `gorm:"not null;uniqueIndex:uq_playbook_template_version,priority:3"`

	Purpose     string `gorm:"type:varchar(16);not null;index"`
	Description string `gorm:"type:text"`

	Schema             datatypes.JSON `gorm:"not null"`
	GradeThresholds    datatypes.JSON
	RiskSchedule       datatypes.JSON
	TemplateMaxRiskPct *float64       `gorm:"column:template_max_risk_pct"`

	// IsActive is the only column that changes after insert (archive).
	IsActive bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PlaybookTemplate) TableName() string {
	return "playbook_templates"
}
