package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/config"
)

type stubVoter struct {
	name     string
	signal   entity.Signal
	strength float64
	err      error
}

func (s *stubVoter) Name() string { return s.name }

func (s *stubVoter) Evaluate(_ []float64) (entity.Signal, float64, error) {
	return s.signal, s.strength, s.err
}

func newStubEngine(quorum int, voters ...*stubVoter) *ConsensusEngine {
	e := NewConsensusEngine(config.Consensus{Quorum: quorum, MinSamples: 30}, nil)
	for _, v := range voters {
		e.Register(v)
	}
	return e
}

func samples(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i))*3
	}
	return prices
}

func TestConsensusInsufficientData(t *testing.T) {
	e := newStubEngine(2, &stubVoter{name: "a", signal: entity.SignalBuy, strength: 1})

	got := e.Evaluate(samples(29))
	assert.Equal(t, entity.SignalHold, got.Signal)
	assert.Contains(t, got.Reason, "insufficient data")
	assert.Empty(t, got.Votes)
}

func TestConsensusQuorumReached(t *testing.T) {
	e := newStubEngine(2,
		&stubVoter{name: "a", signal: entity.SignalBuy, strength: 0.8},
		&stubVoter{name: "b", signal: entity.SignalBuy, strength: 0.6},
		&stubVoter{name: "c", signal: entity.SignalHold, strength: 0},
	)

	got := e.Evaluate(samples(30))
	assert.Equal(t, entity.SignalBuy, got.Signal)
	// Strength averages over every voter, including the HOLD.
	assert.InDelta(t, (0.8+0.6+0)/3, got.Strength, 1e-9)
	assert.Len(t, got.Votes, 3)
}

func TestConsensusNoQuorum(t *testing.T) {
	e := newStubEngine(2,
		&stubVoter{name: "a", signal: entity.SignalBuy, strength: 0.9},
		&stubVoter{name: "b", signal: entity.SignalSell, strength: 0.9},
		&stubVoter{name: "c", signal: entity.SignalHold, strength: 0},
	)

	got := e.Evaluate(samples(30))
	assert.Equal(t, entity.SignalHold, got.Signal)
}

func TestConsensusSellQuorum(t *testing.T) {
	e := newStubEngine(2,
		&stubVoter{name: "a", signal: entity.SignalSell, strength: 0.5},
		&stubVoter{name: "b", signal: entity.SignalSell, strength: 0.7},
		&stubVoter{name: "c", signal: entity.SignalBuy, strength: 0.2},
	)

	got := e.Evaluate(samples(30))
	assert.Equal(t, entity.SignalSell, got.Signal)
	assert.InDelta(t, (0.5+0.7+0.2)/3, got.Strength, 1e-9)
}

func TestConsensusVoterErrorCountsAsHold(t *testing.T) {
	e := newStubEngine(2,
		&stubVoter{name: "a", signal: entity.SignalBuy, strength: 0.8},
		&stubVoter{name: "b", signal: entity.SignalBuy, strength: 0.6},
		&stubVoter{name: "broken", err: errors.New("boom"), signal: entity.SignalBuy, strength: 1},
	)

	got := e.Evaluate(samples(30))
	// The failing voter is isolated: it neither votes nor contributes strength.
	assert.Equal(t, entity.SignalBuy, got.Signal)
	assert.InDelta(t, (0.8+0.6+0)/3, got.Strength, 1e-9)

	var broken entity.VoterVote
	for _, vote := range got.Votes {
		if vote.Voter == "broken" {
			broken = vote
		}
	}
	assert.Equal(t, entity.SignalHold, broken.Signal)
	assert.Zero(t, broken.Strength)
	assert.NotEmpty(t, broken.Err)
}

func TestConsensusDeterministic(t *testing.T) {
	cfg := config.Config{}
	cfg.SetDefaults()
	e := NewConsensusEngine(cfg.Consensus, nil)
	require.Equal(t, 3, e.VoterCount())

	prices := samples(60)
	first := e.Evaluate(prices)
	second := e.Evaluate(prices)
	assert.Equal(t, first, second)
}
