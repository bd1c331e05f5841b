package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/config"
)

func testRiskConfig() config.Risk {
	return config.Risk{
		StopLossPct:       5,
		TakeProfitPct:     10,
		MaxStocks:         2,
		PositionSizePct:   10,
		DailyLossLimitPct: 3,
		CashFloor:         100000,
		AverageDown: config.AverageDown{
			Enabled:    true,
			TriggerPct: 5,
			MaxCount:   2,
			SizeRatio:  0.5,
		},
	}
}

func newTestLedger(t *testing.T, cash float64) *Ledger {
	t.Helper()
	l := NewLedger(testRiskConfig(), nil)
	require.NoError(t, l.SetInitialBalance(cash))
	return l
}

func TestSetInitialBalanceOnce(t *testing.T) {
	l := NewLedger(testRiskConfig(), nil)
	require.NoError(t, l.SetInitialBalance(1000000))
	assert.ErrorIs(t, l.SetInitialBalance(2000000), ErrBalanceAlreadySet)
}

func TestSizeAndOpenScenario(t *testing.T) {
	l := newTestLedger(t, 10000000)

	qty := l.SizeNewPosition(10000)
	assert.Equal(t, 100, qty)

	require.NoError(t, l.ValidateNewEntry("005930", false))
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", qty, 10000))

	assert.InDelta(t, 9000000, l.CashBalance(), 1e-6)

	pos, ok := l.Position("005930")
	require.True(t, ok)
	assert.Equal(t, 100, pos.Quantity)
	assert.InDelta(t, 10000, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 9500, pos.StopLossPrice, 1e-9)
	assert.InDelta(t, 11000, pos.TakeProfitPrice, 1e-9)
}

func TestStopLossScenario(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	l.UpdatePrice("005930", 9600)
	assert.False(t, l.CheckStopLoss("005930"))

	l.UpdatePrice("005930", 9400)
	assert.True(t, l.CheckStopLoss("005930"))
}

func TestTakeProfit(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	l.UpdatePrice("005930", 10900)
	assert.False(t, l.CheckTakeProfit("005930"))

	l.UpdatePrice("005930", 11000)
	assert.True(t, l.CheckTakeProfit("005930"))
}

func TestAveragingInvariant(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("000660", "SK Hynix", 100, 10000))
	require.NoError(t, l.OpenOrAverage("000660", "SK Hynix", 50, 9000))
	require.NoError(t, l.OpenOrAverage("000660", "SK Hynix", 25, 8500))

	pos, ok := l.Position("000660")
	require.True(t, ok)
	assert.InDelta(t, pos.TotalInvested, pos.AvgPrice*float64(pos.Quantity), 1e-6)
	assert.Equal(t, 175, pos.Quantity)
	assert.Equal(t, 2, pos.AverageDownCount)
	assert.Equal(t, []float64{9000, 8500}, pos.AverageDownPrices)
}

func TestThresholdStability(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	pos, _ := l.Position("005930")
	stopBefore, takeBefore := pos.StopLossPrice, pos.TakeProfitPrice

	// Plain price ticks never move the thresholds.
	l.UpdatePrice("005930", 9700)
	l.UpdatePrice("005930", 10400)
	pos, _ = l.Position("005930")
	assert.Equal(t, stopBefore, pos.StopLossPrice)
	assert.Equal(t, takeBefore, pos.TakeProfitPrice)

	// An averaging event re-derives both from the new average price.
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 9000))
	pos, _ = l.Position("005930")
	assert.InDelta(t, 9500*(1-0.05), pos.StopLossPrice, 1e-9)
	assert.InDelta(t, 9500*(1+0.10), pos.TakeProfitPrice, 1e-9)
}

func TestValidateNewEntry(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	assert.ErrorIs(t, l.ValidateNewEntry("005930", false), ErrDuplicatePosition)
	assert.NoError(t, l.ValidateNewEntry("005930", true))

	require.NoError(t, l.OpenOrAverage("000660", "SK Hynix", 100, 10000))
	assert.ErrorIs(t, l.ValidateNewEntry("035420", false), ErrPositionLimitExceeded)
}

func TestValidateNewEntryInsufficientFunds(t *testing.T) {
	l := newTestLedger(t, 10000000)
	// Spend nearly everything; the remaining cash sits below the floor.
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 995, 10000))

	assert.ErrorIs(t, l.ValidateNewEntry("000660", false), ErrInsufficientFunds)
}

func TestDailyLossLimit(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 500, 10000))

	assert.False(t, l.CheckDailyLossLimit())

	// A 10% drop on a half-exposed account is a 5% drawdown, past the 3% limit.
	l.UpdatePrice("005930", 9000)
	assert.True(t, l.CheckDailyLossLimit())
	assert.ErrorIs(t, l.ValidateNewEntry("000660", false), ErrDailyLossLimitExceeded)
}

func TestClosePosition(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	trade, err := l.ClosePosition("005930", 11000, "take_profit")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderSideSell, trade.Side)
	assert.Equal(t, 100, trade.Quantity)
	assert.InDelta(t, 100000, trade.RealizedPnL, 1e-6)

	_, ok := l.Position("005930")
	assert.False(t, ok)
	assert.InDelta(t, 10100000, l.CashBalance(), 1e-6)

	// Buy fill plus sell fill in the journal.
	assert.Len(t, l.Trades(), 2)
}

func TestClosePositionMissingIsProgrammerError(t *testing.T) {
	l := newTestLedger(t, 10000000)
	_, err := l.ClosePosition("005930", 10000, "stop_loss")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestCheckAverageDown(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	l.UpdatePrice("005930", 9600)
	assert.False(t, l.CheckAverageDown("005930"))

	l.UpdatePrice("005930", 9500)
	assert.True(t, l.CheckAverageDown("005930"))
	assert.Equal(t, 50, l.SizeAverageDown("005930"))

	// Use up the allowed averaging purchases.
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 50, 9500))
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 50, 9000))
	l.UpdatePrice("005930", 8000)
	assert.False(t, l.CheckAverageDown("005930"))
}

func TestSellBlockedSuppressesExits(t *testing.T) {
	l := newTestLedger(t, 10000000)
	require.NoError(t, l.OpenOrAverage("005930", "Samsung Electronics", 100, 10000))

	l.SetSellBlocked("005930", true)
	l.UpdatePrice("005930", 9000)
	assert.False(t, l.CheckStopLoss("005930"))

	l.SetSellBlocked("005930", false)
	assert.True(t, l.CheckStopLoss("005930"))
}

func TestRestoreHoldings(t *testing.T) {
	l := newTestLedger(t, 5000000)
	l.RestoreHoldings([]entity.Holding{
		{StockCode: "005930", StockName: "Samsung Electronics", Quantity: 10, AvgPrice: 70000},
		{StockCode: "zero", Quantity: 0, AvgPrice: 100},
	})

	pos, ok := l.Position("005930")
	require.True(t, ok)
	assert.InDelta(t, 70000*0.95, pos.StopLossPrice, 1e-6)
	assert.Len(t, l.OpenPositions(), 1)
	assert.InDelta(t, 5000000+700000, l.TotalValue(), 1e-6)
}
