package agents

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
)

// maxTopSignals caps how many alpha signals the analyst forwards.
const maxTopSignals = 5

// MarketAnalyst reads the composite market snapshot and sets the cycle's
// risk appetite.
type MarketAnalyst struct {
	log zerolog.Logger
}

func NewMarketAnalyst(log zerolog.Logger) *MarketAnalyst {
	return &MarketAnalyst{log: log.With().Str("agent", string(RoleMarketAnalyst)).Logger()}
}

func (a *MarketAnalyst) Role() Role { return RoleMarketAnalyst }

// Process grades the market score into a risk appetite and a deployment
// recommendation. Confidence scales with the composite score, capped at 0.9.
func (a *MarketAnalyst) Process(_ context.Context, cycle *CycleContext) (Message, error) {
	score := cycle.Market.CompositeScore
	confidence := math.Min(0.9, score/100+0.3)

	var appetite string
	switch {
	case score > 65:
		appetite = "aggressive"
	case score < 35:
		appetite = "conservative"
	default:
		appetite = "moderate"
	}

	var recommendation string
	switch {
	case score >= 70:
		recommendation = "Strong market conditions, favorable for yield deployment"
	case score >= 50:
		recommendation = "Constructive conditions, deploy capital selectively"
	case score >= 30:
		recommendation = "Mixed conditions, maintain existing positions"
	default:
		recommendation = "Weak conditions, reduce risk exposure"
	}

	view := &MarketView{
		Regime:         cycle.Market.MarketRegime,
		Sentiment:      cycle.Market.FearGreedLabel,
		RiskAppetite:   appetite,
		Recommendation: recommendation,
		TopSignals:     topSignals(cycle.Market.AlphaSignals),
		Confidence:     confidence,
	}
	cycle.MarketView = view

	a.log.Debug().
		Float64("score", score).
		Str("appetite", appetite).
		Int("signals", len(view.TopSignals)).
		Msg("market analysis complete")

	summary := fmt.Sprintf("%s regime, %s appetite: %s", view.Regime, appetite, recommendation)
	return NewMessage(RoleMarketAnalyst, RoleOrchestrator, "analysis", summary, confidence), nil
}

// topSignals keeps the most severe alpha signals, high severity first.
func topSignals(signals []domain.AlphaSignal) []domain.AlphaSignal {
	rank := map[string]int{"high": 0, "medium": 1, "low": 2}
	sorted := make([]domain.AlphaSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, ok := rank[sorted[i].Severity]
		if !ok {
			ri = 3
		}
		rj, ok := rank[sorted[j].Severity]
		if !ok {
			rj = 3
		}
		return ri < rj
	})
	if len(sorted) > maxTopSignals {
		sorted = sorted[:maxTopSignals]
	}
	return sorted
}
