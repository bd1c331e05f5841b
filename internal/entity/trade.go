package entity

import "time"

// Trade is one fill appended to the trade journal. Immutable once recorded;
// RealizedPnL is only meaningful for sells.
type Trade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StockCode   string    `gorm:"not null;index" json:"stock_code"`
	StockName   string    `json:"stock_name"`
	Side        OrderSide `gorm:"not null" json:"side"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"`
	RealizedPnL float64   `gorm:"column:realized_pnl" json:"realized_pnl"`
	Reason      string    `json:"reason"`
	OrderID     string    `json:"order_id"`
	ExecutedAt  time.Time `gorm:"not null" json:"executed_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
