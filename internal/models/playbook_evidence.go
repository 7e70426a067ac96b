package models

import "time"

const (
	EvidenceKindURL     = "url"
	EvidenceKindTrade   = "trade"
	EvidenceKindJournal = "journal"
)

// PlaybookEvidence links a response field to supporting material.
type PlaybookEvidence struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	ResponseID uint64  `gorm:"not null;index"`
	UserID     uint64  `gorm:"not null;index"`
	FieldKey   string  `gorm:"type:varchar(128);not null"`
	SourceKind string  `gorm:"type:varchar(16);not null"`
	SourceID   *uint64 `gorm:"column:source_id"`
	URL        *string `gorm:"column:url;type:text"`
	Note       string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PlaybookEvidence) TableName() string {
	return "playbook_evidence"
}
