package agents

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// RiskAgent evaluates the cycle for conditions that should veto or
// constrain deployment.
type RiskAgent struct {
	crashVetoPct      float64
	extremeFearIndex  float64
	gasCeilingGwei    float64
	maxPositionPct    float64
	maxChainDominance float64
	log               zerolog.Logger
}

func NewRiskAgent(log zerolog.Logger) *RiskAgent {
	return &RiskAgent{
		crashVetoPct:      15.0,
		extremeFearIndex:  15.0,
		gasCeilingGwei:    100.0,
		maxPositionPct:    40.0,
		maxChainDominance: 0.6,
		log:               log.With().Str("agent", string(RoleRiskManager)).Logger(),
	}
}

func (a *RiskAgent) Role() Role { return RoleRiskManager }

// Process runs every risk check and publishes vetoes, warnings and
// parameter adjustments. Vetoes are hard: the strategist must not propose
// new entries while any stand.
func (a *RiskAgent) Process(_ context.Context, cycle *CycleContext) (Message, error) {
	view := &RiskView{Adjustments: map[string]float64{}}

	if math.Abs(cycle.Market.BTC24hChangePct) > a.crashVetoPct {
		view.Vetoes = append(view.Vetoes, Veto{
			Severity: "critical",
			Reason:   fmt.Sprintf("BTC moved %.1f%% in 24h, markets too unstable for deployment", cycle.Market.BTC24hChangePct),
		})
	}

	if cycle.Market.FearGreedIndex < a.extremeFearIndex && cycle.Market.FearGreedIndex > 0 {
		view.Warnings = append(view.Warnings, fmt.Sprintf("Extreme fear (index %.0f), capping risk tolerance", cycle.Market.FearGreedIndex))
		view.Adjustments["max_risk_score"] = 30
	}

	if gas := cycle.Market.GasGwei["ethereum"]; gas > a.gasCeilingGwei {
		view.Warnings = append(view.Warnings, fmt.Sprintf("Ethereum gas at %.0f Gwei, pausing non-urgent operations", gas))
		view.Adjustments["pause_non_urgent"] = 1
	}

	a.checkConcentration(cycle, view)

	for _, sig := range cycle.Market.AlphaSignals {
		switch sig.Type {
		case "rug_pull", "tvl_crash", "exploit":
			view.Vetoes = append(view.Vetoes, Veto{
				Severity: "critical",
				Reason:   fmt.Sprintf("Alpha signal %s on %s (%s): %s", sig.Type, sig.Symbol, sig.Chain, sig.Description),
			})
		}
	}

	if cycle.RiskScan != nil {
		switch cycle.RiskScan.OverallRisk {
		case "emergency":
			view.Vetoes = append(view.Vetoes, Veto{Severity: "critical", Reason: "Risk scan reports an emergency condition"})
		case "critical":
			view.Warnings = append(view.Warnings, "Risk scan reports a critical condition")
		}
	}

	switch {
	case len(view.Vetoes) > 0:
		view.OverallRisk = "critical"
		view.Confidence = 0.95
	case len(view.Warnings) >= 3:
		view.OverallRisk = "high"
		view.Confidence = 0.85
	case len(view.Warnings) > 0:
		view.OverallRisk = "medium"
		view.Confidence = 0.85
	default:
		view.OverallRisk = "low"
		view.Confidence = 0.85
	}
	cycle.RiskView = view

	if len(view.Vetoes) > 0 {
		a.log.Warn().Int("vetoes", len(view.Vetoes)).Msg("risk agent vetoed the cycle")
	}

	summary := fmt.Sprintf("risk %s: %d vetoes, %d warnings", view.OverallRisk, len(view.Vetoes), len(view.Warnings))
	return NewMessage(RoleRiskManager, RoleOrchestrator, "risk_assessment", summary, view.Confidence), nil
}

// checkConcentration flags oversized single positions and chain dominance.
func (a *RiskAgent) checkConcentration(cycle *CycleContext, view *RiskView) {
	total := 0.0
	chainValue := map[string]float64{}
	for _, pos := range cycle.Portfolio.Positions {
		total += pos.ValueUSD
		chainValue[pos.Chain] += pos.ValueUSD
	}
	if total <= 0 {
		return
	}

	for _, pos := range cycle.Portfolio.Positions {
		if pct := pos.ValueUSD / total * 100; pct > a.maxPositionPct {
			view.Warnings = append(view.Warnings, fmt.Sprintf("Position %s is %.0f%% of the portfolio", pos.PositionID, pct))
		}
	}

	if len(cycle.Portfolio.Positions) > 2 {
		for chain, value := range chainValue {
			if value/total > a.maxChainDominance {
				view.Warnings = append(view.Warnings, fmt.Sprintf("Chain %s holds %.0f%% of the portfolio", chain, value/total*100))
			}
		}
	}
}
