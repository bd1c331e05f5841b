package strategy

import (
	"math"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/indicator"
)

// MACrossVoter votes on crossings of a short SMA over a long SMA. A cross is
// detected between the previous tick and the current one, so the same history
// always yields the same vote.
type MACrossVoter struct {
	shortPeriod int
	longPeriod  int
}

// NewMACrossVoter creates a moving-average crossover voter.
func NewMACrossVoter(shortPeriod, longPeriod int) *MACrossVoter {
	return &MACrossVoter{shortPeriod: shortPeriod, longPeriod: longPeriod}
}

func (v *MACrossVoter) Name() string { return "ma_cross" }

func (v *MACrossVoter) Evaluate(prices []float64) (entity.Signal, float64, error) {
	// The previous tick's averages need one extra sample.
	if len(prices) < v.longPeriod+1 {
		return entity.SignalHold, 0, indicator.ErrInsufficientData
	}

	curShort, err := indicator.SMA(prices, v.shortPeriod)
	if err != nil {
		return entity.SignalHold, 0, err
	}
	curLong, err := indicator.SMA(prices, v.longPeriod)
	if err != nil {
		return entity.SignalHold, 0, err
	}
	prev := prices[:len(prices)-1]
	prevShort, err := indicator.SMA(prev, v.shortPeriod)
	if err != nil {
		return entity.SignalHold, 0, err
	}
	prevLong, err := indicator.SMA(prev, v.longPeriod)
	if err != nil {
		return entity.SignalHold, 0, err
	}

	strength := clampStrength(math.Abs(curShort-curLong) / curLong * 100 / 5)

	if prevShort <= prevLong && curShort > curLong {
		return entity.SignalBuy, strength, nil
	}
	if prevShort >= prevLong && curShort < curLong {
		return entity.SignalSell, strength, nil
	}
	return entity.SignalHold, 0, nil
}
