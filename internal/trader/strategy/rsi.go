package strategy

import (
	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/indicator"
)

// RSIVoter votes BUY when the RSI is oversold and turning up, SELL when it is
// overbought and turning down. Strength scales linearly from the threshold to
// the extreme (0 or 100).
type RSIVoter struct {
	period     int
	overbought float64
	oversold   float64
}

// NewRSIVoter creates an RSI voter with the given period and thresholds.
func NewRSIVoter(period int, overbought, oversold float64) *RSIVoter {
	return &RSIVoter{period: period, overbought: overbought, oversold: oversold}
}

func (v *RSIVoter) Name() string { return "rsi" }

func (v *RSIVoter) Evaluate(prices []float64) (entity.Signal, float64, error) {
	cur, err := indicator.RSI(prices, v.period)
	if err != nil {
		return entity.SignalHold, 0, err
	}
	prev, err := indicator.RSI(prices[:len(prices)-1], v.period)
	if err != nil {
		return entity.SignalHold, 0, err
	}

	if cur < v.oversold && cur > prev {
		strength := clampStrength((v.oversold - cur) / v.oversold)
		return entity.SignalBuy, strength, nil
	}
	if cur > v.overbought && cur < prev {
		strength := clampStrength((cur - v.overbought) / (100 - v.overbought))
		return entity.SignalSell, strength, nil
	}
	return entity.SignalHold, 0, nil
}
