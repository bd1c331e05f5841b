package indicator

import "errors"

// ErrInsufficientData is returned when the price history is too short for the
// requested indicator. Callers treat it as a normal hold outcome, not a failure.
var ErrInsufficientData = errors.New("insufficient data")

// SMA returns the simple moving average of the last n prices.
func SMA(prices []float64, n int) (float64, error) {
	if n <= 0 || len(prices) < n {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - n; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(n), nil
}

// EMA returns the exponential moving average over the full price history,
// seeded at the first price with multiplier 2/(n+1).
func EMA(prices []float64, n int) (float64, error) {
	if n <= 0 || len(prices) < n {
		return 0, ErrInsufficientData
	}
	series := emaSeries(prices, n)
	return series[len(series)-1], nil
}

// RSI returns the relative strength index over the last period deltas.
// Returns 100 when the window contains no losses.
func RSI(prices []float64, period int) (float64, error) {
	if period <= 0 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}
	gain, loss := 0.0, 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100, nil
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100 - (100 / (1 + rs)), nil
}

// MACD returns the MACD line (EMA(fast) - EMA(slow)), its signal line
// (EMA(signal) of the MACD line) and the histogram (their difference).
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine, histogram float64, err error) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow {
		return 0, 0, 0, ErrInsufficientData
	}
	fastSeries := emaSeries(prices, fast)
	slowSeries := emaSeries(prices, slow)
	macdSeries := make([]float64, len(prices))
	for i := range prices {
		macdSeries[i] = fastSeries[i] - slowSeries[i]
	}
	signalSeries := emaSeries(macdSeries, signal)

	macd = macdSeries[len(macdSeries)-1]
	signalLine = signalSeries[len(signalSeries)-1]
	return macd, signalLine, macd - signalLine, nil
}

// emaSeries computes the iterative EMA at every index, seeded at values[0].
func emaSeries(values []float64, n int) []float64 {
	k := 2.0 / float64(n+1)
	series := make([]float64, len(values))
	series[0] = values[0]
	for i := 1; i < len(values); i++ {
		series[i] = values[i]*k + series[i-1]*(1-k)
	}
	return series
}
