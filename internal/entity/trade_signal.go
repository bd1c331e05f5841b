package entity

import (
	"time"

	"gorm.io/datatypes"
)

// TradeSignal is a persisted consensus evaluation, kept for after-session review.
// Data carries the per-voter breakdown as JSON.
type TradeSignal struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	StockCode string         `gorm:"not null;index" json:"stock_code"`
	Signal    string         `gorm:"not null" json:"signal"`
	Strength  float64        `json:"strength"`
	Price     float64        `json:"price"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (TradeSignal) TableName() string {
	return "trade_signals"
}
