package strategy

import (
	"fmt"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/pkg/logger"
)

// ConsensusEngine aggregates the enabled voters into one decision. A side wins
// when its vote count reaches the quorum; the final strength is the mean over
// every voter's strength, winning side or not.
type ConsensusEngine struct {
	voters     []Voter
	quorum     int
	minSamples int
	log        *logger.Logger
}

// NewConsensusEngine builds the voter set from configuration.
func NewConsensusEngine(cfg config.Consensus, log *logger.Logger) *ConsensusEngine {
	var voters []Voter
	if cfg.EnableMACross {
		voters = append(voters, NewMACrossVoter(cfg.MAShortPeriod, cfg.MALongPeriod))
	}
	if cfg.EnableRSI {
		voters = append(voters, NewRSIVoter(cfg.RSIPeriod, cfg.RSIOverbought, cfg.RSIOversold))
	}
	if cfg.EnableMACD {
		voters = append(voters, NewMACDVoter(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal))
	}
	return &ConsensusEngine{
		voters:     voters,
		quorum:     cfg.Quorum,
		minSamples: cfg.MinSamples,
		log:        log,
	}
}

// Register adds an external voter (e.g. a news sentiment source) that follows
// the same contract as the built-in technical voters.
func (e *ConsensusEngine) Register(v Voter) {
	e.voters = append(e.voters, v)
}

// VoterCount returns the number of registered voters.
func (e *ConsensusEngine) VoterCount() int {
	return len(e.voters)
}

// Evaluate runs every voter over the price history and returns the consensus.
// A voter that errors counts as a HOLD with zero strength; evaluation continues.
func (e *ConsensusEngine) Evaluate(prices []float64) entity.StrategySignal {
	if len(prices) < e.minSamples {
		return entity.StrategySignal{
			Signal: entity.SignalHold,
			Reason: fmt.Sprintf("insufficient data: %d of %d samples", len(prices), e.minSamples),
		}
	}

	votes := make([]entity.VoterVote, 0, len(e.voters))
	buyVotes, sellVotes := 0, 0
	strengthSum := 0.0

	for _, voter := range e.voters {
		signal, strength, err := voter.Evaluate(prices)
		vote := entity.VoterVote{Voter: voter.Name(), Signal: signal, Strength: strength}
		if err != nil {
			vote.Signal = entity.SignalHold
			vote.Strength = 0
			vote.Err = err.Error()
			if e.log != nil {
				e.log.Debug("Voter evaluation failed, counting as HOLD",
					logger.StringField("voter", voter.Name()), logger.ErrorField(err))
			}
		}
		switch vote.Signal {
		case entity.SignalBuy:
			buyVotes++
		case entity.SignalSell:
			sellVotes++
		}
		strengthSum += vote.Strength
		votes = append(votes, vote)
	}

	final := entity.SignalHold
	reason := fmt.Sprintf("no quorum: %d buy, %d sell of %d voters (quorum %d)",
		buyVotes, sellVotes, len(e.voters), e.quorum)
	if buyVotes >= e.quorum {
		final = entity.SignalBuy
		reason = fmt.Sprintf("buy quorum reached: %d of %d voters", buyVotes, len(e.voters))
	} else if sellVotes >= e.quorum {
		final = entity.SignalSell
		reason = fmt.Sprintf("sell quorum reached: %d of %d voters", sellVotes, len(e.voters))
	}

	strength := 0.0
	if len(e.voters) > 0 {
		strength = strengthSum / float64(len(e.voters))
	}

	return entity.StrategySignal{
		Signal:   final,
		Strength: strength,
		Votes:    votes,
		Reason:   reason,
	}
}
