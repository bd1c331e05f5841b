package strategy

import "golang-stock-trader/internal/entity"

// Voter is a single technical-signal source. Evaluate inspects a time-ascending
// price history (newest last) and emits a direction with a strength in [0, 1].
// Implementations must be pure functions of the input history.
type Voter interface {
	Name() string
	Evaluate(prices []float64) (entity.Signal, float64, error)
}

func clampStrength(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
