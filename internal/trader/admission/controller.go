package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/broker"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/utils"
)

// ErrOrderCapacityExceeded is returned when the daily order quota blocks a
// submission. Exit orders are still admitted inside the restricted zone.
var ErrOrderCapacityExceeded = errors.New("daily order capacity exceeded")

// Controller is the single gateway between the decision core and the venue.
// Every read is paced by the query limiter and every submission by the order
// limiter, both with blocking backpressure, so the venue's per-second limits
// hold no matter how many callers fan in.
type Controller interface {
	GetCurrentPrice(ctx context.Context, code string) (float64, error)
	GetBalance(ctx context.Context) (float64, error)
	GetHoldings(ctx context.Context) ([]entity.Holding, error)
	Submit(ctx context.Context, req entity.OrderRequest) entity.OrderOutcome
	QuotaUsed() int
}

type controller struct {
	cfg    config.Admission
	broker broker.Broker
	log    *logger.Logger

	queryLimiter *rate.Limiter
	orderLimiter *rate.Limiter

	// sleep is swapped out in tests so retry backoff does not wall-clock wait.
	sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	quotaUsed  int
	sessionDay string
}

func NewController(cfg config.Admission, b broker.Broker, log *logger.Logger) Controller {
	return &controller{
		cfg:          cfg,
		broker:       b,
		log:          log,
		queryLimiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.QueryPerSecond)), 1),
		orderLimiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.OrderPerSecond)), 1),
		sleep:        sleepCtx,
		sessionDay:   utils.SessionDay(utils.TimeNowKST()),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *controller) GetCurrentPrice(ctx context.Context, code string) (float64, error) {
	if err := c.queryLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.broker.GetCurrentPrice(ctx, code)
}

func (c *controller) GetBalance(ctx context.Context) (float64, error) {
	if err := c.queryLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.broker.GetBalance(ctx)
}

func (c *controller) GetHoldings(ctx context.Context) ([]entity.Holding, error) {
	if err := c.queryLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.broker.GetHoldings(ctx)
}

// Submit pushes an order through quota admission, the order limiter and the
// retry loop. It is synchronous; the outcome tells the caller whether the
// venue accepted the order and after how many attempts.
func (c *controller) Submit(ctx context.Context, req entity.OrderRequest) entity.OrderOutcome {
	if err := c.admit(req); err != nil {
		if c.log != nil {
			c.log.Warn("order rejected by quota",
				logger.StringField("stock_code", req.StockCode),
				logger.StringField("priority", string(req.Priority)),
				logger.IntField("quota_used", c.QuotaUsed()))
		}
		return entity.OrderOutcome{
			Accepted:  false,
			ErrorCode: "CAPACITY_EXCEEDED",
			Message:   err.Error(),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if err := c.orderLimiter.Wait(ctx); err != nil {
			return entity.OrderOutcome{
				Accepted:  false,
				ErrorCode: string(broker.CodeTimeout),
				Message:   err.Error(),
				Attempts:  attempt - 1,
			}
		}

		// Every attempt that reaches the venue counts against its daily
		// allowance, accepted or not.
		c.consumeQuota()
		orderID, err := c.submitOnce(ctx, req)
		if err == nil {
			return entity.OrderOutcome{Accepted: true, OrderID: orderID, Attempts: attempt}
		}
		lastErr = err

		if !broker.IsRetryable(err) {
			if c.log != nil {
				c.log.Error("order failed with terminal error",
					logger.StringField("stock_code", req.StockCode),
					logger.StringField("error_code", string(broker.CodeOf(err))),
					logger.ErrorField(err))
			}
			return entity.OrderOutcome{
				Accepted:  false,
				ErrorCode: string(broker.CodeOf(err)),
				Message:   err.Error(),
				Attempts:  attempt,
			}
		}

		if c.log != nil {
			c.log.Warn("order attempt failed, retrying",
				logger.StringField("stock_code", req.StockCode),
				logger.IntField("attempt", attempt),
				logger.ErrorField(err))
		}
		if attempt < c.cfg.RetryAttempts {
			if err := c.sleep(ctx, time.Duration(attempt)*c.cfg.RetryBackoff); err != nil {
				break
			}
		}
	}

	return entity.OrderOutcome{
		Accepted:  false,
		ErrorCode: string(broker.CodeOf(lastErr)),
		Message:   lastErr.Error(),
		Attempts:  c.cfg.RetryAttempts,
	}
}

func (c *controller) submitOnce(ctx context.Context, req entity.OrderRequest) (string, error) {
	if req.Side == entity.OrderSideSell {
		return c.broker.SubmitSell(ctx, req)
	}
	return c.broker.SubmitBuy(ctx, req)
}

// admit applies the daily quota zones. Below the warning threshold everything
// passes; between warning and restricted everything passes with a warning log;
// between restricted and full only exit orders pass; at full nothing does.
func (c *controller) admit(req entity.OrderRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollSessionLocked()

	usedPct := float64(c.quotaUsed) / float64(c.cfg.DailyOrderQuota) * 100

	switch {
	case usedPct >= 100:
		return ErrOrderCapacityExceeded
	case usedPct >= c.cfg.RestrictedThresholdPct:
		if !req.Priority.Exit() {
			return ErrOrderCapacityExceeded
		}
	case usedPct >= c.cfg.WarningThresholdPct:
		if c.log != nil {
			c.log.Warn("daily order quota entering warning zone",
				logger.IntField("quota_used", c.quotaUsed),
				logger.IntField("quota_limit", c.cfg.DailyOrderQuota))
		}
	}
	return nil
}

func (c *controller) consumeQuota() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollSessionLocked()
	c.quotaUsed++
}

func (c *controller) QuotaUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollSessionLocked()
	return c.quotaUsed
}

func (c *controller) rollSessionLocked() {
	today := utils.SessionDay(utils.TimeNowKST())
	if today == c.sessionDay {
		return
	}
	c.sessionDay = today
	c.quotaUsed = 0
}
