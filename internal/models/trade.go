package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a closed trade; the guardrail scan reads net P&L by close time.
type Trade struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	UserID    uint64  `gorm:"not null;index:idx_trades_user_closed,priority:1"`
	AccountID *uint64 `gorm:"index"`
	Symbol    string  `gorm:"type:varchar(40);not null;index"`
	Side      string  `gorm:"type:varchar(8)"`

	// Explicit column name because default GORM naming turns "PnL" into "pn_l".
	NetPnL decimal.Decimal `gorm:"column:net_pnl;type:numeric(30,10);not null"`

	OpenedAt *time.Time `gorm:"column:opened_at"`
	ClosedAt time.Time  `gorm:"not null;index:idx_trades_user_closed,priority:2"`
	Notes    string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Trade) TableName() string {
	return "trades"
}
