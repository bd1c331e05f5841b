package surge

import "math"

// PressureScore computes the buying-pressure heuristic (0-100) from the order
// book imbalance, the execution strength and the price momentum. The bucket
// boundaries are part of the detection contract and must not drift.
func PressureScore(bidVol, askVol int64, execStrength, changeRate float64) int {
	score := 0

	ratio := 0.0
	if askVol > 0 {
		ratio = float64(bidVol) / float64(askVol)
	} else if bidVol > 0 {
		ratio = math.Inf(1)
	}
	switch {
	case ratio > 2.0:
		score += 40
	case ratio > 1.5:
		score += 30
	case ratio > 1.0:
		score += 20
	case ratio > 0.8:
		score += 10
	}

	switch {
	case execStrength > 200:
		score += 40
	case execStrength > 150:
		score += 30
	case execStrength > 120:
		score += 20
	case execStrength > 100:
		score += 10
	}

	switch {
	case changeRate > 7:
		score += 20
	case changeRate > 5:
		score += 15
	case changeRate > 3:
		score += 10
	case changeRate > 1:
		score += 5
	}

	return score
}
