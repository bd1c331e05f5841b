package entity

// Signal is the direction emitted by a strategy voter or by the consensus engine.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// VoterVote is a single voter's contribution to a consensus decision.
type VoterVote struct {
	Voter    string  `json:"voter"`
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
	Err      string  `json:"error,omitempty"`
}

// StrategySignal is the aggregated outcome of one consensus evaluation.
// It is ephemeral; persisting it is the caller's concern.
type StrategySignal struct {
	Signal   Signal      `json:"signal"`
	Strength float64     `json:"strength"`
	Votes    []VoterVote `json:"votes"`
	Reason   string      `json:"reason"`
}
