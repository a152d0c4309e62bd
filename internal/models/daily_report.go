package models

import (
	"time"

	"gorm.io/datatypes"
)

type DailyReport struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	ReportDate string         `gorm:"type:varchar(10);not null;uniqueIndex"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyReport) TableName() string {
	return "daily_reports"
}
