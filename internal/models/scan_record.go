package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanRecord is one orchestrator cycle, skipped cycles included.
type ScanRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	CycleID   string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	StartedAt time.Time `gorm:"type:timestamptz;not null;index"`

	State      string `gorm:"type:varchar(20);not null"`
	SkipReason string `gorm:"type:varchar(100)"`

	ArticlesFetched      int `gorm:"not null;default:0"`
	EventsExtracted      int `gorm:"not null;default:0"`
	MarketsFetched       int `gorm:"not null;default:0"`
	OpportunityCount     int `gorm:"not null;default:0"`
	TradesExecuted       int `gorm:"not null;default:0"`
	SkippedOpportunities int `gorm:"not null;default:0"`
	SkippedSearches      int `gorm:"not null;default:0"`
	RateLimitHits        int `gorm:"not null;default:0"`
	APICallsUsed         int `gorm:"column:api_calls_used;not null;default:0"`

	Opportunities datatypes.JSON `gorm:"type:jsonb"`
	Errors        datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScanRecord) TableName() string {
	return "scan_records"
}
