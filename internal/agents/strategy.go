package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/optimizer"
)

// riskConfidenceFactor degrades strategy confidence as the risk picture
// worsens.
var riskConfidenceFactor = map[string]float64{
	"low":      1.0,
	"medium":   0.9,
	"high":     0.75,
	"critical": 0.5,
}

// StrategyAgent turns the market and risk views into concrete actions. It
// prefers the external advisory when one is present and falls back to the
// rule-based optimizer otherwise. Any veto forces a defensive posture.
type StrategyAgent struct {
	optimizer *optimizer.Optimizer
	log       zerolog.Logger
}

func NewStrategyAgent(opt *optimizer.Optimizer, log zerolog.Logger) *StrategyAgent {
	return &StrategyAgent{
		optimizer: opt,
		log:       log.With().Str("agent", string(RoleStrategist)).Logger(),
	}
}

func (a *StrategyAgent) Role() Role { return RoleStrategist }

func (a *StrategyAgent) Process(_ context.Context, cycle *CycleContext) (Message, error) {
	if cycle.RiskView == nil {
		return Message{}, fmt.Errorf("strategy requires a risk assessment")
	}

	var proposal *Proposal
	switch {
	case len(cycle.RiskView.Vetoes) > 0:
		proposal = a.defensive(cycle.RiskView.Vetoes)
	case cycle.Advisory != nil && len(cycle.Advisory.Recommendations) > 0:
		proposal = a.fromAdvisory(cycle)
	default:
		proposal = a.ruleBased(cycle)
	}
	cycle.Proposal = proposal

	a.log.Info().
		Str("strategy", proposal.Strategy).
		Int("actions", len(proposal.Actions)).
		Float64("confidence", proposal.Confidence).
		Msg("strategy proposed")

	summary := fmt.Sprintf("%s strategy with %d actions", proposal.Strategy, len(proposal.Actions))
	return NewMessage(RoleStrategist, RoleOrchestrator, "proposal", summary, proposal.Confidence), nil
}

// defensive emits one hold per veto so the transcript records what blocked
// deployment.
func (a *StrategyAgent) defensive(vetoes []Veto) *Proposal {
	actions := make([]domain.Recommendation, 0, len(vetoes))
	for _, v := range vetoes {
		actions = append(actions, domain.Recommendation{
			Action:  "hold",
			Urgency: "high",
			Reason:  v.Reason,
		})
	}
	return &Proposal{Strategy: "defensive", Actions: actions, Confidence: 0.9}
}

func (a *StrategyAgent) fromAdvisory(cycle *CycleContext) *Proposal {
	confidence := cycle.Advisory.Confidence
	if confidence <= 0 {
		confidence = 0.75
	}
	confidence *= riskConfidenceFactor[cycle.RiskView.OverallRisk]

	actions := make([]domain.Recommendation, len(cycle.Advisory.Recommendations))
	copy(actions, cycle.Advisory.Recommendations)

	return &Proposal{Strategy: "advisory", Actions: actions, Confidence: confidence}
}

// ruleBased runs the Sharpe optimizer over the pool universe and converts
// its allocations into entry actions.
func (a *StrategyAgent) ruleBased(cycle *CycleContext) *Proposal {
	candidates := make([]optimizer.PoolCandidate, 0, len(cycle.Portfolio.Pools))
	for _, p := range cycle.Portfolio.Pools {
		candidates = append(candidates, optimizer.PoolCandidate{
			PoolID:     p.PoolID,
			ProtocolID: p.ProtocolID,
			Chain:      p.Chain,
			Symbol:     p.Symbol,
			APR:        p.APRTotal,
			TVLUSD:     p.TVLUSD,
			RiskScore:  p.RiskScore,
			ILRisk:     p.ILRiskPct,
			Volatility: p.Volatility,
		})
	}

	result := a.optimizer.Optimize(candidates, cycle.Portfolio.AvailableUSD, 0)

	actions := make([]domain.Recommendation, 0, len(result.Allocations))
	for _, alloc := range result.Allocations {
		actions = append(actions, domain.Recommendation{
			Action:        "enter",
			PoolID:        alloc.PoolID,
			Chain:         alloc.Chain,
			AmountUSD:     alloc.AmountUSD,
			AllocationPct: alloc.Weight * 100,
			Urgency:       "medium",
			Reason:        alloc.Reason,
		})
	}

	confidence := 0.7 * riskConfidenceFactor[cycle.RiskView.OverallRisk]
	return &Proposal{Strategy: "rule_based", Actions: actions, Confidence: confidence}
}
