package strategy

import (
	"math"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/indicator"
)

// MACDVoter votes on the MACD histogram crossing zero: BUY on a cross from
// non-positive to positive, SELL on the reverse.
type MACDVoter struct {
	fast   int
	slow   int
	signal int
}

// NewMACDVoter creates a MACD histogram voter.
func NewMACDVoter(fast, slow, signal int) *MACDVoter {
	return &MACDVoter{fast: fast, slow: slow, signal: signal}
}

func (v *MACDVoter) Name() string { return "macd" }

func (v *MACDVoter) Evaluate(prices []float64) (entity.Signal, float64, error) {
	if len(prices) < v.slow+1 {
		return entity.SignalHold, 0, indicator.ErrInsufficientData
	}

	_, _, cur, err := indicator.MACD(prices, v.fast, v.slow, v.signal)
	if err != nil {
		return entity.SignalHold, 0, err
	}
	_, _, prev, err := indicator.MACD(prices[:len(prices)-1], v.fast, v.slow, v.signal)
	if err != nil {
		return entity.SignalHold, 0, err
	}

	strength := clampStrength(math.Abs(cur) / 5)

	if prev <= 0 && cur > 0 {
		return entity.SignalBuy, strength, nil
	}
	if prev >= 0 && cur < 0 {
		return entity.SignalSell, strength, nil
	}
	return entity.SignalHold, 0, nil
}
