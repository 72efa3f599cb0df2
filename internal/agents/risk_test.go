package agents

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/risk"
)

func calmCycle() *CycleContext {
	return &CycleContext{
		Market: domain.MarketSnapshot{
			CompositeScore:  55,
			FearGreedIndex:  50,
			BTC24hChangePct: 1.0,
			GasGwei:         map[string]float64{"ethereum": 25},
		},
	}
}

func TestRiskAgentCalmMarket(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()

	msg, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	require.NotNil(t, cycle.RiskView)
	assert.Empty(t, cycle.RiskView.Vetoes)
	assert.Empty(t, cycle.RiskView.Warnings)
	assert.Equal(t, "low", cycle.RiskView.OverallRisk)
	assert.InDelta(t, 0.85, msg.Confidence, 1e-9)
}

func TestRiskAgentBTCCrashVeto(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Market.BTC24hChangePct = -18

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	require.Len(t, cycle.RiskView.Vetoes, 1)
	assert.Equal(t, "critical", cycle.RiskView.Vetoes[0].Severity)
	assert.Equal(t, "critical", cycle.RiskView.OverallRisk)
	assert.InDelta(t, 0.95, cycle.RiskView.Confidence, 1e-9)
}

func TestRiskAgentExtremeFearAdjustment(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Market.FearGreedIndex = 10

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.Empty(t, cycle.RiskView.Vetoes)
	require.Len(t, cycle.RiskView.Warnings, 1)
	assert.InDelta(t, 30.0, cycle.RiskView.Adjustments["max_risk_score"], 1e-9)
	assert.Equal(t, "medium", cycle.RiskView.OverallRisk)
}

func TestRiskAgentGasCeiling(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Market.GasGwei["ethereum"] = 180

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	require.Len(t, cycle.RiskView.Warnings, 1)
	assert.InDelta(t, 1.0, cycle.RiskView.Adjustments["pause_non_urgent"], 1e-9)
}

func TestRiskAgentDangerousAlphaSignalsVeto(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Market.AlphaSignals = []domain.AlphaSignal{
		{Type: "whale_move", Symbol: "WETH", Severity: "medium"},
		{Type: "rug_pull", Symbol: "SCAM", Chain: "bsc", Severity: "high"},
		{Type: "exploit", Symbol: "VICTIM", Chain: "ethereum", Severity: "high"},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.Len(t, cycle.RiskView.Vetoes, 2, "only rug_pull/tvl_crash/exploit signals veto")
	assert.Equal(t, "critical", cycle.RiskView.OverallRisk)
}

func TestRiskAgentConcentrationWarnings(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Portfolio = domain.PortfolioSnapshot{
		Positions: []domain.Position{
			{PositionID: "p1", Chain: "arbitrum", ValueUSD: 7_000},
			{PositionID: "p2", Chain: "arbitrum", ValueUSD: 2_000},
			{PositionID: "p3", Chain: "base", ValueUSD: 1_000},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	// p1 is 70% of the portfolio and arbitrum holds 90%
	assert.Len(t, cycle.RiskView.Warnings, 2)
	assert.Equal(t, "medium", cycle.RiskView.OverallRisk)
}

func TestRiskAgentThreeWarningsEscalateToHigh(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.Market.FearGreedIndex = 10
	cycle.Market.GasGwei["ethereum"] = 200
	cycle.Portfolio = domain.PortfolioSnapshot{
		Positions: []domain.Position{
			{PositionID: "p1", Chain: "arbitrum", ValueUSD: 9_000},
			{PositionID: "p2", Chain: "base", ValueUSD: 1_000},
		},
	}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(cycle.RiskView.Warnings), 3)
	assert.Equal(t, "high", cycle.RiskView.OverallRisk)
}

func TestRiskAgentEmergencyScanVetoes(t *testing.T) {
	a := NewRiskAgent(zerolog.Nop())
	cycle := calmCycle()
	cycle.RiskScan = &risk.Report{OverallRisk: "emergency"}

	_, err := a.Process(context.Background(), cycle)

	require.NoError(t, err)
	require.Len(t, cycle.RiskView.Vetoes, 1)
	assert.Contains(t, cycle.RiskView.Vetoes[0].Reason, "emergency")
}
