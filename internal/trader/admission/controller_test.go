package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/broker"
	"golang-stock-trader/internal/trader/config"
)

func testAdmissionConfig() config.Admission {
	// High per-second rates keep limiter waits out of test runtime.
	return config.Admission{
		QueryPerSecond:         1000,
		OrderPerSecond:         1000,
		DailyOrderQuota:        1000,
		WarningThresholdPct:    80,
		RestrictedThresholdPct: 90,
		RetryAttempts:          3,
		RetryBackoff:           500 * time.Millisecond,
	}
}

func newTestController(t *testing.T, b broker.Broker) (*controller, *[]time.Duration) {
	t.Helper()
	c := NewController(testAdmissionConfig(), b, nil).(*controller)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func buyRequest() entity.OrderRequest {
	return entity.OrderRequest{
		StockCode: "005930",
		StockName: "Samsung Electronics",
		Side:      entity.OrderSideBuy,
		Quantity:  10,
		Price:     70000,
		Priority:  entity.PriorityNormal,
	}
}

func TestSubmitAcceptsFirstAttempt(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	c, slept := newTestController(t, paper)

	outcome := c.Submit(context.Background(), buyRequest())

	require.True(t, outcome.Accepted)
	assert.NotEmpty(t, outcome.OrderID)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, *slept)
	assert.Equal(t, 1, c.QuotaUsed())
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	paper.FailNext(
		broker.NewError(broker.CodeTimeout, "venue timeout"),
		broker.NewError(broker.CodeRateLimited, "slow down"),
	)
	c, slept := newTestController(t, paper)

	outcome := c.Submit(context.Background(), buyRequest())

	require.True(t, outcome.Accepted)
	assert.Equal(t, 3, outcome.Attempts)
	// Linear backoff: attempt n waits n times the base interval.
	require.Len(t, *slept, 2)
	assert.Equal(t, 500*time.Millisecond, (*slept)[0])
	assert.Equal(t, 1000*time.Millisecond, (*slept)[1])
	assert.Equal(t, 3, c.QuotaUsed())
}

func TestSubmitStopsOnTerminalError(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	paper.FailNext(broker.NewError(broker.CodeInsufficientBalance, "not enough cash"))
	c, slept := newTestController(t, paper)

	outcome := c.Submit(context.Background(), buyRequest())

	require.False(t, outcome.Accepted)
	assert.Equal(t, string(broker.CodeInsufficientBalance), outcome.ErrorCode)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, *slept, "terminal errors must not be retried")
}

func TestSubmitExhaustsRetries(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	paper.FailNext(
		broker.NewError(broker.CodeTimeout, "timeout 1"),
		broker.NewError(broker.CodeTimeout, "timeout 2"),
		broker.NewError(broker.CodeTimeout, "timeout 3"),
	)
	c, slept := newTestController(t, paper)

	outcome := c.Submit(context.Background(), buyRequest())

	require.False(t, outcome.Accepted)
	assert.Equal(t, string(broker.CodeTimeout), outcome.ErrorCode)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Len(t, *slept, 2, "no backoff after the final attempt")
}

func TestQuotaZones(t *testing.T) {
	t.Run("below warning admits", func(t *testing.T) {
		paper := broker.NewPaperBroker(100_000_000)
		c, _ := newTestController(t, paper)
		c.quotaUsed = 799

		outcome := c.Submit(context.Background(), buyRequest())
		assert.True(t, outcome.Accepted)
	})

	t.Run("warning zone still admits", func(t *testing.T) {
		paper := broker.NewPaperBroker(100_000_000)
		c, _ := newTestController(t, paper)
		c.quotaUsed = 850

		outcome := c.Submit(context.Background(), buyRequest())
		assert.True(t, outcome.Accepted)
	})

	t.Run("restricted zone rejects normal priority", func(t *testing.T) {
		paper := broker.NewPaperBroker(100_000_000)
		c, _ := newTestController(t, paper)
		c.quotaUsed = 901

		outcome := c.Submit(context.Background(), buyRequest())
		require.False(t, outcome.Accepted)
		assert.Equal(t, "CAPACITY_EXCEEDED", outcome.ErrorCode)
		assert.Equal(t, 901, c.QuotaUsed(), "rejected orders must not consume quota")
	})

	t.Run("restricted zone admits exit orders", func(t *testing.T) {
		paper := broker.NewPaperBroker(100_000_000)
		paper.SetPrice("005930", 70000)
		_, err := paper.SubmitBuy(context.Background(), buyRequest())
		require.NoError(t, err)

		c, _ := newTestController(t, paper)
		c.quotaUsed = 901

		req := buyRequest()
		req.Side = entity.OrderSideSell
		req.Priority = entity.PriorityStopLoss
		outcome := c.Submit(context.Background(), req)
		assert.True(t, outcome.Accepted)
	})

	t.Run("exhausted quota rejects everything", func(t *testing.T) {
		paper := broker.NewPaperBroker(100_000_000)
		c, _ := newTestController(t, paper)
		c.quotaUsed = 1000

		req := buyRequest()
		req.Priority = entity.PriorityStopLoss
		outcome := c.Submit(context.Background(), req)
		require.False(t, outcome.Accepted)
		assert.Equal(t, "CAPACITY_EXCEEDED", outcome.ErrorCode)
	})
}

func TestQuotaResetsOnNewSession(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	c, _ := newTestController(t, paper)
	c.quotaUsed = 1000
	c.sessionDay = "2020-01-01"

	assert.Equal(t, 0, c.QuotaUsed())

	outcome := c.Submit(context.Background(), buyRequest())
	assert.True(t, outcome.Accepted)
}

func TestQueryPassthrough(t *testing.T) {
	paper := broker.NewPaperBroker(5_000_000)
	paper.SetPrice("000660", 120000)
	c, _ := newTestController(t, paper)
	ctx := context.Background()

	price, err := c.GetCurrentPrice(ctx, "000660")
	require.NoError(t, err)
	assert.Equal(t, 120000.0, price)

	balance, err := c.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5_000_000.0, balance)

	holdings, err := c.GetHoldings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestQueryWaitHonorsCancelledContext(t *testing.T) {
	paper := broker.NewPaperBroker(0)
	c, _ := newTestController(t, paper)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetBalance(ctx)
	assert.Error(t, err)
}

func TestOrderLimiterDelaysBurst(t *testing.T) {
	paper := broker.NewPaperBroker(10_000_000)
	cfg := testAdmissionConfig()
	cfg.OrderPerSecond = 3
	c := NewController(cfg, paper, nil).(*controller)

	start := time.Now()
	for i := 0; i < 4; i++ {
		outcome := c.Submit(context.Background(), buyRequest())
		require.True(t, outcome.Accepted)
		assert.Equal(t, 1, outcome.Attempts)
	}
	elapsed := time.Since(start)

	// Three per second with burst one: the fourth submission blocks until the
	// window rolls, it is never dropped or failed.
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 3*time.Second)
	assert.Equal(t, 4, c.QuotaUsed())
}
