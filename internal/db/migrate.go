package db

import (
	"eventarb/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.ScanRecord{},
		&models.TradeDecision{},
		&models.PositionSnapshot{},
		&models.DailyReport{},
	)
}
