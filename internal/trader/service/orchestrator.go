package service

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/admission"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/internal/trader/events"
	"golang-stock-trader/internal/trader/ledger"
	"golang-stock-trader/internal/trader/repository"
	"golang-stock-trader/internal/trader/strategy"
	"golang-stock-trader/internal/trader/surge"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/telegram"
	"golang-stock-trader/pkg/utils"
)

// watchState is one watched stock's name and bounded price history.
type watchState struct {
	name   string
	prices []float64
}

// MarketSession reports whether the exchange is accepting orders. The periodic
// sweep pauses outside trading hours.
type MarketSession interface {
	IsOpen(t time.Time) bool
}

// CandidateProvider supplies the ranked candidate list for pool refreshes,
// typically from the venue's traded-value ranking.
type CandidateProvider interface {
	TopCandidates(ctx context.Context, limit int) ([]entity.Candidate, error)
}

// Orchestrator wires market data through the decision pipeline: ledger price
// update, surge check, consensus evaluation, risk validation and order
// admission, then records the outcome. It owns all per-session mutable state.
type Orchestrator struct {
	cfg      *config.Config
	log      *logger.Logger
	ledger   *ledger.Ledger
	detector *surge.Detector
	engine   *strategy.ConsensusEngine
	orders   admission.Controller

	// Optional collaborators; each is nil-safe or nil-checked.
	publisher  *events.Publisher
	notifier   telegram.Notifier
	tradeRepo  repository.TradeRepository
	signalRepo repository.TradeSignalRepository
	session    MarketSession
	candidates CandidateProvider

	// mu guards watch and the per-session flags; ticks and the surge
	// consumer run on different goroutines.
	mu sync.Mutex

	// watch holds the bounded price history per watched stock. Whoever put a
	// code here wants consensus evaluated on its ticks.
	watch map[string]*watchState

	// logThrottle suppresses repeated per-stock log lines within its TTL.
	logThrottle *cache.Cache

	haltNotified bool
	sessionDay   string
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Ledger   *ledger.Ledger
	Detector *surge.Detector
	Engine   *strategy.ConsensusEngine
	Orders   admission.Controller

	Publisher  *events.Publisher
	Notifier   telegram.Notifier
	TradeRepo  repository.TradeRepository
	SignalRepo repository.TradeSignalRepository
	Session    MarketSession
	Candidates CandidateProvider
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:         deps.Config,
		log:         deps.Logger,
		ledger:      deps.Ledger,
		detector:    deps.Detector,
		engine:      deps.Engine,
		orders:      deps.Orders,
		publisher:   deps.Publisher,
		notifier:    deps.Notifier,
		tradeRepo:   deps.TradeRepo,
		signalRepo:  deps.SignalRepo,
		session:     deps.Session,
		candidates:  deps.Candidates,
		watch:       make(map[string]*watchState),
		logThrottle: cache.New(5*time.Minute, 10*time.Minute),
		sessionDay:  utils.SessionDay(utils.TimeNowKST()),
	}
}

// Start launches the surge-event consumer, the periodic sweep and the pool
// refresh schedule. It returns immediately; the loops stop with ctx.
func (o *Orchestrator) Start(ctx context.Context) {
	utils.GoSafe(func() { o.consumeSurgeEvents(ctx) })
	utils.GoSafe(func() { o.runSweepLoop(ctx) })
	utils.GoSafe(func() { o.runPoolRefreshLoop(ctx) })
}

// Watch adds a stock to the consensus watch set.
func (o *Orchestrator) Watch(code, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.watch[code]
	if !ok {
		state = &watchState{prices: make([]float64, 0, o.cfg.Trading.WatchHistorySize)}
		o.watch[code] = state
	}
	if name != "" {
		state.name = name
	}
}

// Watched reports whether consensus is evaluated for the code.
func (o *Orchestrator) Watched(code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.watch[code]
	return ok
}

// OnPriceTick is the hot path: every trade print for a known stock lands here.
// It must never block on the venue; only an actionable consensus or surge
// outcome reaches the admission controller.
func (o *Orchestrator) OnPriceTick(ctx context.Context, code string, price, changeRate float64, volume int64) {
	o.rollSession()
	o.ledger.UpdatePrice(code, price)
	o.detector.OnPriceTick(code, price, changeRate, volume)

	o.mu.Lock()
	state, watched := o.watch[code]
	if !watched {
		o.mu.Unlock()
		return
	}
	state.prices = append(state.prices, price)
	if len(state.prices) > o.cfg.Trading.WatchHistorySize {
		state.prices = state.prices[len(state.prices)-o.cfg.Trading.WatchHistorySize:]
	}
	name := state.name
	prices := append([]float64(nil), state.prices...)
	o.mu.Unlock()

	result := o.engine.Evaluate(prices)
	switch result.Signal {
	case entity.SignalBuy:
		o.persistSignal(ctx, code, price, result)
		o.tryEnter(ctx, code, name, price, result.Reason, entity.PriorityNormal)
	case entity.SignalSell:
		o.persistSignal(ctx, code, price, result)
		if _, open := o.ledger.Position(code); open {
			o.exitPosition(ctx, code, price, entity.PriorityNormal, result.Reason)
		}
	}
}

// OnOrderBookTick forwards order-book aggregates to the surge detector.
func (o *Orchestrator) OnOrderBookTick(code string, bidVol, askVol int64, execStrength float64) {
	o.detector.OnOrderBookTick(code, bidVol, askVol, execStrength)
}

// consumeSurgeEvents promotes each detected candidate into the watch set and
// attempts the immediate entry while the detector is still held, so a burst of
// detections cannot race into duplicate orders. Release always follows.
func (o *Orchestrator) consumeSurgeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-o.detector.Events():
			if !ok {
				return
			}
			o.handleSurgeEvent(ctx, ev)
			o.detector.Release()
		}
	}
}

func (o *Orchestrator) handleSurgeEvent(ctx context.Context, ev entity.SurgeEvent) {
	o.log.Info("Surge event received",
		logger.StringField("stock_code", ev.StockCode),
		logger.Float64Field("change_rate", ev.ChangeRate),
		logger.Float64Field("volume_ratio", ev.VolumeRatio),
		logger.IntField("pressure_score", ev.PressureScore))

	o.Watch(ev.StockCode, ev.StockName)
	o.publisher.PublishSurgeDetected(ctx, ev)
	o.notify(telegram.FormatSurgeDetectedMessage(ev))

	o.tryEnter(ctx, ev.StockCode, ev.StockName, ev.Price, "surge detected", entity.PriorityNormal)
}

// tryEnter runs one buy through validation, sizing and admission. Validation
// failures are steady-state outcomes; they are logged (throttled) and skipped.
func (o *Orchestrator) tryEnter(ctx context.Context, code, name string, price float64, reason string, priority entity.OrderPriority) {
	if err := o.ledger.ValidateNewEntry(code, false); err != nil {
		if o.shouldLog("entry-rejected:" + code) {
			o.log.Info("Entry rejected",
				logger.StringField("stock_code", code),
				logger.StringField("cause", err.Error()))
		}
		return
	}

	qty := o.ledger.SizeNewPosition(price)
	if qty < 1 {
		if o.shouldLog("entry-unaffordable:" + code) {
			o.log.Info("Entry skipped, sized below one share",
				logger.StringField("stock_code", code),
				logger.Float64Field("price", price))
		}
		return
	}

	o.submitBuy(ctx, entity.OrderRequest{
		StockCode: code,
		StockName: name,
		Side:      entity.OrderSideBuy,
		Quantity:  qty,
		Price:     price,
		Priority:  priority,
		Reason:    reason,
	})
}

// tryAverageDown runs one averaging-down purchase for an open position whose
// price fell through the trigger.
func (o *Orchestrator) tryAverageDown(ctx context.Context, pos entity.Position) {
	if err := o.ledger.ValidateNewEntry(pos.StockCode, true); err != nil {
		if o.shouldLog("avgdown-rejected:" + pos.StockCode) {
			o.log.Info("Averaging down rejected",
				logger.StringField("stock_code", pos.StockCode),
				logger.StringField("cause", err.Error()))
		}
		return
	}

	qty := o.ledger.SizeAverageDown(pos.StockCode)
	if qty < 1 {
		return
	}

	o.submitBuy(ctx, entity.OrderRequest{
		StockCode: pos.StockCode,
		StockName: pos.StockName,
		Side:      entity.OrderSideBuy,
		Quantity:  qty,
		Price:     pos.CurrentPrice,
		Priority:  entity.PriorityNormal,
		Reason:    "averaging down",
	})
}

func (o *Orchestrator) submitBuy(ctx context.Context, req entity.OrderRequest) {
	outcome := o.orders.Submit(ctx, req)
	if !outcome.Accepted {
		o.recordRejection(ctx, req, outcome)
		return
	}

	if err := o.ledger.OpenOrAverage(req.StockCode, req.StockName, req.Quantity, req.Price); err != nil {
		// The venue accepted but the ledger refused; the position and the
		// account have diverged and need operator attention.
		o.log.Error("Accepted buy could not be recorded",
			logger.StringField("stock_code", req.StockCode),
			logger.ErrorField(err))
		return
	}

	trade := entity.Trade{
		StockCode:  req.StockCode,
		StockName:  req.StockName,
		Side:       entity.OrderSideBuy,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Reason:     req.Reason,
		OrderID:    outcome.OrderID,
		ExecutedAt: utils.TimeNowKST(),
	}
	o.recordTrade(ctx, trade)
}

// exitPosition sells the full position through admission with the given
// priority. Exit priorities stay admissible inside the restricted quota zone.
func (o *Orchestrator) exitPosition(ctx context.Context, code string, price float64, priority entity.OrderPriority, reason string) {
	pos, ok := o.ledger.Position(code)
	if !ok || pos.SellBlocked {
		return
	}

	req := entity.OrderRequest{
		StockCode: code,
		StockName: pos.StockName,
		Side:      entity.OrderSideSell,
		Quantity:  pos.Quantity,
		Price:     price,
		Priority:  priority,
		Reason:    reason,
	}
	outcome := o.orders.Submit(ctx, req)
	if !outcome.Accepted {
		o.recordRejection(ctx, req, outcome)
		return
	}

	trade, err := o.ledger.ClosePosition(code, price, reason)
	if err != nil {
		o.log.Error("Accepted sell could not be recorded",
			logger.StringField("stock_code", code),
			logger.ErrorField(err))
		return
	}
	trade.OrderID = outcome.OrderID
	o.recordTrade(ctx, trade)
}

func (o *Orchestrator) recordTrade(ctx context.Context, trade entity.Trade) {
	o.log.Info("Trade executed",
		logger.StringField("stock_code", trade.StockCode),
		logger.StringField("side", string(trade.Side)),
		logger.IntField("quantity", trade.Quantity),
		logger.Float64Field("price", trade.Price),
		logger.Float64Field("realized_pnl", trade.RealizedPnL))

	if o.tradeRepo != nil {
		if err := o.tradeRepo.Create(ctx, &trade); err != nil {
			o.log.Error("Failed to journal trade", logger.ErrorField(err), logger.StringField("stock_code", trade.StockCode))
		}
	}
	o.publisher.PublishTradeExecuted(ctx, events.TradeExecutedEvent{
		StockCode:   trade.StockCode,
		StockName:   trade.StockName,
		Side:        trade.Side,
		Quantity:    trade.Quantity,
		Price:       trade.Price,
		RealizedPnL: trade.RealizedPnL,
		Reason:      trade.Reason,
		OrderID:     trade.OrderID,
		ExecutedAt:  trade.ExecutedAt,
	})
	o.notify(telegram.FormatTradeExecutedMessage(trade))
}

func (o *Orchestrator) recordRejection(ctx context.Context, req entity.OrderRequest, outcome entity.OrderOutcome) {
	o.log.Warn("Order not accepted",
		logger.StringField("stock_code", req.StockCode),
		logger.StringField("side", string(req.Side)),
		logger.StringField("error_code", outcome.ErrorCode),
		logger.IntField("attempts", outcome.Attempts))

	o.publisher.PublishOrderRejected(ctx, events.OrderRejectedEvent{
		StockCode:  req.StockCode,
		Side:       string(req.Side),
		ErrorCode:  outcome.ErrorCode,
		Message:    outcome.Message,
		Attempts:   outcome.Attempts,
		OccurredAt: utils.TimeNowKST(),
	})
}

func (o *Orchestrator) persistSignal(ctx context.Context, code string, price float64, result entity.StrategySignal) {
	if o.signalRepo == nil {
		return
	}
	if err := o.signalRepo.CreateFromEvaluation(ctx, code, price, result); err != nil {
		o.log.Error("Failed to persist signal", logger.ErrorField(err), logger.StringField("stock_code", code))
	}
}

func (o *Orchestrator) notify(message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.SendMessage(message); err != nil {
		o.log.Error("Failed to send telegram notification", logger.ErrorField(err))
	}
}

// shouldLog admits one log line per key per throttle window.
func (o *Orchestrator) shouldLog(key string) bool {
	if _, found := o.logThrottle.Get(key); found {
		return false
	}
	o.logThrottle.SetDefault(key, struct{}{})
	return true
}

// rollSession clears per-session state when the KST calendar date changes.
func (o *Orchestrator) rollSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	today := utils.SessionDay(utils.TimeNowKST())
	if today == o.sessionDay {
		return
	}
	o.sessionDay = today
	o.haltNotified = false
}
