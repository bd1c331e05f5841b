package entity

import "time"

// Position is an open holding tracked by the position ledger. The ledger is the
// single writer; other components only read snapshots.
type Position struct {
	StockCode         string    `json:"stock_code"`
	StockName         string    `json:"stock_name"`
	Quantity          int       `json:"quantity"`
	AvgPrice          float64   `json:"avg_price"`
	CurrentPrice      float64   `json:"current_price"`
	TotalInvested     float64   `json:"total_invested"`
	EntryTime         time.Time `json:"entry_time"`
	StopLossPrice     float64   `json:"stop_loss_price"`
	TakeProfitPrice   float64   `json:"take_profit_price"`
	AverageDownCount  int       `json:"average_down_count"`
	AverageDownPrices []float64 `json:"average_down_prices,omitempty"`
	SellBlocked       bool      `json:"sell_blocked"`
}

// Holding is one row of the broker's holdings report, used to seed the ledger
// at startup.
type Holding struct {
	StockCode string  `json:"stock_code"`
	StockName string  `json:"stock_name"`
	Quantity  int     `json:"quantity"`
	AvgPrice  float64 `json:"avg_price"`
}

// UnrealizedPnL returns the open profit or loss at the current price.
func (p *Position) UnrealizedPnL() float64 {
	return (p.CurrentPrice - p.AvgPrice) * float64(p.Quantity)
}

// MarketValue returns the position's value at the current price.
func (p *Position) MarketValue() float64 {
	return p.CurrentPrice * float64(p.Quantity)
}
