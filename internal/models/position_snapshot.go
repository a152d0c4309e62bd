package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is one open position as seen by a full refresh.
type PositionSnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SnapshotAt time.Time `gorm:"type:timestamptz;not null;index"`
	MarketID   string    `gorm:"type:varchar(100);not null;index"`
	Outcome    string    `gorm:"type:varchar(5)"`

	Size     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	AvgPrice decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	OpenedAt *time.Time      `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PositionSnapshot) TableName() string {
	return "position_snapshots"
}
