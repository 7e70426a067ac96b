package db

import (
	"github.com/rmcmillan34/edge-journal/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Account{},
		&models.Trade{},
		&models.PlaybookTemplate{},
		&models.PlaybookResponse{},
		&models.PlaybookEvidence{},
		&models.TradingRules{},
		&models.Breach{},
		&models.SystemSetting{},
	)
}
