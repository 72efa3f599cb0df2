package agents

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/friction"
	"github.com/kyrou/warden/internal/optimizer"
)

func testStrategyAgent() *StrategyAgent {
	cfg := config.OptimizerConfig{
		MaxRiskScore:     60,
		MaxPerPoolPct:    0.25,
		MaxPerChainPct:   0.50,
		MinAllocationUSD: 100,
		RiskFreeRate:     3.0,
		MaxPositions:     10,
	}
	opt := optimizer.New(cfg, friction.NewCalculator(zerolog.Nop()), zerolog.Nop())
	return NewStrategyAgent(opt, zerolog.Nop())
}

func TestStrategyRequiresRiskView(t *testing.T) {
	a := testStrategyAgent()

	_, err := a.Process(context.Background(), &CycleContext{})

	assert.Error(t, err)
}

func TestStrategyDefensiveOnVeto(t *testing.T) {
	a := testStrategyAgent()
	cycle := &CycleContext{
		RiskView: &RiskView{
			OverallRisk: "critical",
			Vetoes: []Veto{
				{Severity: "critical", Reason: "BTC moved -18.0% in 24h"},
				{Severity: "critical", Reason: "exploit detected"},
			},
		},
		Advisory: &domain.Advisory{
			Recommendations: []domain.Recommendation{{Action: "enter", PoolID: "pool-a"}},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	require.NotNil(t, cycle.Proposal)
	assert.Equal(t, "defensive", cycle.Proposal.Strategy)
	require.Len(t, cycle.Proposal.Actions, 2, "one hold per veto, advisory ignored")
	for _, action := range cycle.Proposal.Actions {
		assert.Equal(t, "hold", action.Action)
		assert.Equal(t, "high", action.Urgency)
	}
	assert.InDelta(t, 0.9, cycle.Proposal.Confidence, 1e-9)
}

func TestStrategyFollowsAdvisory(t *testing.T) {
	a := testStrategyAgent()
	cycle := &CycleContext{
		RiskView: &RiskView{OverallRisk: "low"},
		Advisory: &domain.Advisory{
			Confidence: 0.8,
			Recommendations: []domain.Recommendation{
				{Action: "increase", PoolID: "pool-a", AmountUSD: 2_000},
				{Action: "exit", PoolID: "pool-b"},
			},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.Equal(t, "advisory", cycle.Proposal.Strategy)
	assert.Len(t, cycle.Proposal.Actions, 2)
	assert.InDelta(t, 0.8, cycle.Proposal.Confidence, 1e-9)
}

func TestStrategyAdvisoryConfidenceDegradesWithRisk(t *testing.T) {
	a := testStrategyAgent()
	cycle := &CycleContext{
		RiskView: &RiskView{OverallRisk: "high"},
		Advisory: &domain.Advisory{
			Confidence:      0.8,
			Recommendations: []domain.Recommendation{{Action: "increase", PoolID: "pool-a"}},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.InDelta(t, 0.6, cycle.Proposal.Confidence, 1e-9) // 0.8 * 0.75
}

func TestStrategyRuleBasedFallback(t *testing.T) {
	a := testStrategyAgent()
	cycle := &CycleContext{
		RiskView: &RiskView{OverallRisk: "low"},
		Portfolio: domain.PortfolioSnapshot{
			AvailableUSD: 10_000,
			Pools: []domain.Pool{
				{PoolID: "arb-usdc", ProtocolID: "aave-v3", Chain: "arbitrum", Symbol: "USDC",
					APRTotal: 18, TVLUSD: 50_000_000, RiskScore: 25, Volatility: 4},
				{PoolID: "sol-jup", ProtocolID: "jupiter", Chain: "solana", Symbol: "SOL-USDC",
					APRTotal: 24, TVLUSD: 20_000_000, RiskScore: 40, ILRiskPct: 2, Volatility: 8},
				{PoolID: "base-weth", ProtocolID: "uniswap-v3", Chain: "base", Symbol: "WETH-USDC",
					APRTotal: 20, TVLUSD: 30_000_000, RiskScore: 35, ILRiskPct: 3, Volatility: 6},
				{PoolID: "poly-usdt", ProtocolID: "curve-dex", Chain: "polygon", Symbol: "USDT",
					APRTotal: 15, TVLUSD: 40_000_000, RiskScore: 30, Volatility: 3},
				{PoolID: "op-dai", ProtocolID: "aave-v3", Chain: "optimism", Symbol: "DAI",
					APRTotal: 14, TVLUSD: 25_000_000, RiskScore: 28, Volatility: 3},
			},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.Equal(t, "rule_based", cycle.Proposal.Strategy)
	require.NotEmpty(t, cycle.Proposal.Actions)
	for _, action := range cycle.Proposal.Actions {
		assert.Equal(t, "enter", action.Action)
		assert.GreaterOrEqual(t, action.AmountUSD, 100.0)
	}
	assert.InDelta(t, 0.7, cycle.Proposal.Confidence, 1e-9)
}
