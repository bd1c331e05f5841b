package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/utils"
)

// Validation failures are expected steady-state outcomes; the orchestrator
// matches them with errors.Is and skips the entry.
var (
	ErrDuplicatePosition      = errors.New("position already open")
	ErrPositionLimitExceeded  = errors.New("position limit exceeded")
	ErrDailyLossLimitExceeded = errors.New("daily loss limit exceeded")
	ErrInsufficientFunds      = errors.New("insufficient funds")

	// ErrNoPosition signals a programmer error: closing a position that was
	// never opened.
	ErrNoPosition = errors.New("no such position")

	ErrBalanceAlreadySet = errors.New("initial balance already set")
)

// Ledger owns every open position, the cash balance and the append-only trade
// log. All mutation is serialized behind one account-wide mutex; tick handling
// and the periodic sweep never interleave destructively on the same position.
type Ledger struct {
	mu  sync.Mutex
	cfg config.Risk
	log *logger.Logger

	cash            float64
	dailyStartValue float64
	sessionDay      string
	initialized     bool

	positions map[string]*entity.Position
	trades    []entity.Trade
}

// NewLedger creates an empty ledger with the given risk limits.
func NewLedger(cfg config.Risk, log *logger.Logger) *Ledger {
	return &Ledger{
		cfg:       cfg,
		log:       log,
		positions: make(map[string]*entity.Position),
	}
}

// SetInitialBalance seeds the cash balance and the daily-loss baseline.
// It may be called once; a second call is a programmer error.
func (l *Ledger) SetInitialBalance(cash float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrBalanceAlreadySet
	}
	if cash < 0 {
		return fmt.Errorf("negative initial balance %.2f", cash)
	}
	l.cash = cash
	l.initialized = true
	l.sessionDay = utils.SessionDay(utils.TimeNowKST())
	l.dailyStartValue = l.totalValueLocked()
	return nil
}

// RestoreHoldings seeds positions from the broker's holdings report at startup,
// deriving stop-loss and take-profit thresholds from each average price.
func (l *Ledger) RestoreHoldings(holdings []entity.Holding) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range holdings {
		if h.Quantity <= 0 {
			continue
		}
		l.positions[h.StockCode] = &entity.Position{
			StockCode:       h.StockCode,
			StockName:       h.StockName,
			Quantity:        h.Quantity,
			AvgPrice:        h.AvgPrice,
			CurrentPrice:    h.AvgPrice,
			TotalInvested:   h.AvgPrice * float64(h.Quantity),
			EntryTime:       utils.TimeNowKST(),
			StopLossPrice:   h.AvgPrice * (1 - l.cfg.StopLossPct/100),
			TakeProfitPrice: h.AvgPrice * (1 + l.cfg.TakeProfitPct/100),
		}
	}
	l.dailyStartValue = l.totalValueLocked()
}

// ValidateNewEntry checks whether a buy for code may proceed. Averaging into an
// existing position must be explicitly allowed.
func (l *Ledger) ValidateNewEntry(code string, allowAverageDown bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollSessionLocked()

	if _, open := l.positions[code]; open {
		if !allowAverageDown {
			return ErrDuplicatePosition
		}
	} else if len(l.positions) >= l.cfg.MaxStocks {
		return ErrPositionLimitExceeded
	}
	if l.dailyLossExceededLocked() {
		return ErrDailyLossLimitExceeded
	}
	if l.cash <= l.cfg.CashFloor {
		return ErrInsufficientFunds
	}
	return nil
}

// SizeNewPosition returns the quantity purchasable with the configured slice of
// the cash balance at the given price. Callers must reject a result below 1.
func (l *Ledger) SizeNewPosition(price float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if price <= 0 {
		return 0
	}
	return int(math.Floor(l.cash * l.cfg.PositionSizePct / 100 / price))
}

// SizeAverageDown returns the quantity for one averaging-down purchase, scaled
// from the position's current quantity by the configured ratio.
func (l *Ledger) SizeAverageDown(code string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok {
		return 0
	}
	return int(math.Floor(float64(pos.Quantity) * l.cfg.AverageDown.SizeRatio))
}

// OpenOrAverage records a validated buy fill. The first fill for a code creates
// the position and derives its stop-loss/take-profit thresholds; a repeat fill
// averages down, recomputing the weighted average price and re-deriving both
// thresholds from it. Thresholds stay fixed until the next averaging event.
func (l *Ledger) OpenOrAverage(code, name string, qty int, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if qty <= 0 || price <= 0 {
		return fmt.Errorf("invalid fill for %s: qty=%d price=%.2f", code, qty, price)
	}
	cost := price * float64(qty)
	if cost > l.cash {
		return ErrInsufficientFunds
	}

	pos, open := l.positions[code]
	if !open {
		l.positions[code] = &entity.Position{
			StockCode:       code,
			StockName:       name,
			Quantity:        qty,
			AvgPrice:        price,
			CurrentPrice:    price,
			TotalInvested:   cost,
			EntryTime:       utils.TimeNowKST(),
			StopLossPrice:   price * (1 - l.cfg.StopLossPct/100),
			TakeProfitPrice: price * (1 + l.cfg.TakeProfitPct/100),
		}
	} else {
		pos.TotalInvested += cost
		pos.Quantity += qty
		pos.AvgPrice = pos.TotalInvested / float64(pos.Quantity)
		pos.CurrentPrice = price
		pos.AverageDownCount++
		pos.AverageDownPrices = append(pos.AverageDownPrices, price)
		pos.StopLossPrice = pos.AvgPrice * (1 - l.cfg.StopLossPct/100)
		pos.TakeProfitPrice = pos.AvgPrice * (1 + l.cfg.TakeProfitPct/100)
	}
	l.cash -= cost

	l.record(entity.Trade{
		StockCode:  code,
		StockName:  name,
		Side:       entity.OrderSideBuy,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: utils.TimeNowKST(),
	})
	return nil
}

// CheckAverageDown reports whether the position qualifies for one more
// averaging-down purchase at its current price.
func (l *Ledger) CheckAverageDown(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok || !l.cfg.AverageDown.Enabled {
		return false
	}
	if pos.AverageDownCount >= l.cfg.AverageDown.MaxCount {
		return false
	}
	trigger := pos.AvgPrice * (1 - l.cfg.AverageDown.TriggerPct/100)
	return pos.CurrentPrice > 0 && pos.CurrentPrice <= trigger
}

// ClosePosition sells the full position at sellPrice, credits cash, appends the
// realized trade and removes the position. A missing position is a programmer
// error, not a validation failure.
func (l *Ledger) ClosePosition(code string, sellPrice float64, reason string) (entity.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok {
		return entity.Trade{}, fmt.Errorf("close %s: %w", code, ErrNoPosition)
	}

	realized := (sellPrice - pos.AvgPrice) * float64(pos.Quantity)
	l.cash += sellPrice * float64(pos.Quantity)

	trade := entity.Trade{
		StockCode:   code,
		StockName:   pos.StockName,
		Side:        entity.OrderSideSell,
		Quantity:    pos.Quantity,
		Price:       sellPrice,
		RealizedPnL: realized,
		Reason:      reason,
		ExecutedAt:  utils.TimeNowKST(),
	}
	l.record(trade)
	delete(l.positions, code)

	if l.log != nil {
		l.log.Info("Position closed",
			logger.StringField("stock_code", code),
			logger.StringField("reason", reason),
			logger.Float64Field("sell_price", sellPrice),
			logger.Float64Field("realized_pnl", realized))
	}
	return trade, nil
}

// UpdatePrice marks the position for code to the latest traded price.
func (l *Ledger) UpdatePrice(code string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pos, ok := l.positions[code]; ok && price > 0 {
		pos.CurrentPrice = price
	}
}

// CheckStopLoss reports whether the current price breached the stored stop-loss
// threshold. The threshold is never recomputed on a plain price tick.
func (l *Ledger) CheckStopLoss(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok || pos.SellBlocked || pos.CurrentPrice <= 0 {
		return false
	}
	return pos.CurrentPrice <= pos.StopLossPrice
}

// CheckTakeProfit reports whether the current price reached the stored
// take-profit threshold.
func (l *Ledger) CheckTakeProfit(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok || pos.SellBlocked || pos.CurrentPrice <= 0 {
		return false
	}
	return pos.CurrentPrice >= pos.TakeProfitPrice
}

// CheckDailyLossLimit reports whether today's drawdown against the session-start
// value reached the configured limit.
func (l *Ledger) CheckDailyLossLimit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollSessionLocked()
	return l.dailyLossExceededLocked()
}

// SetSellBlocked marks a position as not sellable by automated exits.
func (l *Ledger) SetSellBlocked(code string, blocked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos, ok := l.positions[code]; ok {
		pos.SellBlocked = blocked
	}
}

// Position returns a copy of the open position for code.
func (l *Ledger) Position(code string) (entity.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[code]
	if !ok {
		return entity.Position{}, false
	}
	return clonePosition(pos), true
}

// OpenPositions returns copies of every open position.
func (l *Ledger) OpenPositions() []entity.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]entity.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, clonePosition(pos))
	}
	return out
}

// CashBalance returns the current cash balance.
func (l *Ledger) CashBalance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// TotalValue returns cash plus the market value of every open position.
func (l *Ledger) TotalValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValueLocked()
}

// Trades returns a copy of the append-only trade log.
func (l *Ledger) Trades() []entity.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.Trade(nil), l.trades...)
}

func (l *Ledger) record(t entity.Trade) {
	l.trades = append(l.trades, t)
}

func (l *Ledger) totalValueLocked() float64 {
	total := l.cash
	for _, pos := range l.positions {
		price := pos.CurrentPrice
		if price <= 0 {
			price = pos.AvgPrice
		}
		total += price * float64(pos.Quantity)
	}
	return total
}

func (l *Ledger) dailyLossExceededLocked() bool {
	if l.dailyStartValue <= 0 || l.cfg.DailyLossLimitPct <= 0 {
		return false
	}
	drawdown := (l.dailyStartValue - l.totalValueLocked()) / l.dailyStartValue * 100
	return drawdown >= l.cfg.DailyLossLimitPct
}

// rollSessionLocked re-bases the daily-loss baseline when the KST calendar
// date changes.
func (l *Ledger) rollSessionLocked() {
	today := utils.SessionDay(utils.TimeNowKST())
	if today == l.sessionDay {
		return
	}
	l.sessionDay = today
	l.dailyStartValue = l.totalValueLocked()
}

func clonePosition(pos *entity.Position) entity.Position {
	copied := *pos
	copied.AverageDownPrices = append([]float64(nil), pos.AverageDownPrices...)
	return copied
}
