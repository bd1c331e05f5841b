package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	got, err := SMA(prices, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-9)

	got, err = SMA(prices, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestSMAInsufficientData(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = SMA(nil, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMASeededAtFirstPrice(t *testing.T) {
	// n=3 -> k=0.5. Series: 10, (12*0.5+10*0.5)=11, (14*0.5+11*0.5)=12.5
	got, err := EMA([]float64{10, 12, 14}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got, 1e-9)
}

func TestRSI(t *testing.T) {
	// 14 rising deltas -> no losses -> RSI 100.
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	got, err := RSI(prices, 14)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-9)

	// Alternating equal gains and losses -> RSI 50.
	prices = []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100}
	got, err = RSI(prices, 14)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI(make([]float64, 14), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100
	}
	macd, signal, hist, err := MACD(prices, 12, 26, 9)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, macd, 1e-9)
	assert.InDelta(t, 0.0, signal, 1e-9)
	assert.InDelta(t, 0.0, hist, 1e-9)
}

func TestMACDRisingSeriesHasPositiveHistogram(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	macd, _, hist, err := MACD(prices, 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, hist, 0.0)
}

func TestMACDInsufficientData(t *testing.T) {
	_, _, _, err := MACD(make([]float64, 25), 12, 26, 9)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestIndicatorsArePure(t *testing.T) {
	prices := []float64{10, 11, 9, 12, 13, 11, 14}
	before := append([]float64(nil), prices...)

	_, _ = SMA(prices, 3)
	_, _ = EMA(prices, 3)
	_, _ = RSI(prices, 5)
	_, _, _, _ = MACD(prices, 2, 4, 2)

	assert.Equal(t, before, prices)
}
