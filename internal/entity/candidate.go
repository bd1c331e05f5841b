package entity

import "time"

// Candidate is one stock in the surge detector's ranked pool. The detector is
// the single writer; VolumeHistory is a bounded rolling window, newest last.
type Candidate struct {
	StockCode    string  `json:"stock_code"`
	StockName    string  `json:"stock_name"`
	BasePrice    float64 `json:"base_price"`
	BaseVolume   int64   `json:"base_volume"`
	TradedValue  float64 `json:"traded_value"`
	CurrentPrice float64 `json:"current_price"`
	ChangeRate   float64 `json:"change_rate"`

	VolumeHistory []int64 `json:"volume_history,omitempty"`

	// Order book aggregates, updated by order-book ticks.
	BidVolume         int64   `json:"bid_volume"`
	AskVolume         int64   `json:"ask_volume"`
	ExecutionStrength float64 `json:"execution_strength"`
	OrderBookSeen     bool    `json:"order_book_seen"`

	LastDetected time.Time `json:"last_detected"`
}

// SurgeEvent is emitted when a pooled candidate satisfies every surge condition.
type SurgeEvent struct {
	StockCode     string    `json:"stock_code"`
	StockName     string    `json:"stock_name"`
	Price         float64   `json:"price"`
	ChangeRate    float64   `json:"change_rate"`
	VolumeRatio   float64   `json:"volume_ratio"`
	PressureScore int       `json:"pressure_score"`
	DetectedAt    time.Time `json:"detected_at"`
}
