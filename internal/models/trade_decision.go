package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeDecision struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	CycleID  string `gorm:"type:varchar(36);not null;index"`
	MarketID string `gorm:"type:varchar(100);not null;index"`
	Question string `gorm:"type:text"`
	Outcome  string `gorm:"type:varchar(5);not null"`

	ShouldTrade bool            `gorm:"not null"`
	Size        decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Price       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Confidence  float64         `gorm:"not null"`
	Reasoning   string          `gorm:"type:text"`

	Executed         bool   `gorm:"not null;default:false;index"`
	MonitorOnly      bool   `gorm:"not null;default:false"`
	DepositAttempted bool   `gorm:"not null;default:false"`
	OrderID          string `gorm:"type:varchar(100)"`
	Error            string `gorm:"type:text"`

	DecidedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TradeDecision) TableName() string {
	return "trade_decisions"
}
