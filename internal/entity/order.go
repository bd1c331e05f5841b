package entity

// OrderSide represents buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderPriority classifies how urgent an order is. Exit orders protecting an
// open position keep being admitted when the daily quota is nearly exhausted.
type OrderPriority string

const (
	PriorityNormal     OrderPriority = "NORMAL"
	PriorityStopLoss   OrderPriority = "STOP_LOSS"
	PriorityTakeProfit OrderPriority = "TAKE_PROFIT"
)

// Exit reports whether the priority belongs to a position-protecting exit order.
func (p OrderPriority) Exit() bool {
	return p == PriorityStopLoss || p == PriorityTakeProfit
}

// OrderRequest describes one order submission attempt. Price 0 means market order.
type OrderRequest struct {
	StockCode string        `json:"stock_code"`
	StockName string        `json:"stock_name,omitempty"`
	Side      OrderSide     `json:"side"`
	Quantity  int           `json:"quantity"`
	Price     float64       `json:"price"`
	Priority  OrderPriority `json:"priority"`
	Reason    string        `json:"reason,omitempty"`
}

// OrderOutcome is the result of pushing an OrderRequest through the admission
// controller: either an accepted broker order ID or a classified failure.
type OrderOutcome struct {
	Accepted  bool   `json:"accepted"`
	OrderID   string `json:"order_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Attempts  int    `json:"attempts"`
}
