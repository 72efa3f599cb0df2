// Package agents implements the specialist decision agents that debate each
// cycle: market analysis, risk evaluation, strategy and execution planning.
package agents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/risk"
)

// Role identifies one agent in the cycle.
type Role string

const (
	RoleMarketAnalyst Role = "market_analyst"
	RoleRiskManager   Role = "risk_manager"
	RoleStrategist    Role = "strategist"
	RoleExecutor      Role = "executor"
	RoleOrchestrator  Role = "orchestrator"
)

// Message is one entry of the cycle transcript. Agents communicate their
// typed results through the CycleContext; messages are the audit trail.
type Message struct {
	ID         string    `json:"id"`
	From       Role      `json:"from"`
	To         Role      `json:"to"`
	Type       string    `json:"type"`
	Summary    string    `json:"summary"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMessage stamps a transcript entry.
func NewMessage(from, to Role, msgType, summary string, confidence float64) Message {
	return Message{
		ID:         uuid.NewString(),
		From:       from,
		To:         to,
		Type:       msgType,
		Summary:    summary,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}
}

// MarketView is the market analyst's output.
type MarketView struct {
	Regime         string               `json:"regime"`
	Sentiment      string               `json:"sentiment"`
	RiskAppetite   string               `json:"risk_appetite"` // "conservative", "moderate", "aggressive"
	Recommendation string               `json:"recommendation"`
	TopSignals     []domain.AlphaSignal `json:"top_signals"`
	Confidence     float64              `json:"confidence"`
}

// Veto is a hard objection from the risk manager. Any veto forces the cycle
// into exit-only mode.
type Veto struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// RiskView is the risk manager's output.
type RiskView struct {
	Vetoes      []Veto             `json:"vetoes"`
	Warnings    []string           `json:"warnings"`
	Adjustments map[string]float64 `json:"adjustments"`
	OverallRisk string             `json:"overall_risk"` // "low", "medium", "high", "critical"
	Confidence  float64            `json:"confidence"`
}

// Proposal is the strategist's output.
type Proposal struct {
	Strategy   string                  `json:"strategy"` // "defensive", "advisory", "rule_based"
	Actions    []domain.Recommendation `json:"actions"`
	Confidence float64                 `json:"confidence"`
}

// ExecutionStep is one routed, prioritized action.
type ExecutionStep struct {
	Action        domain.Recommendation `json:"action"`
	Method        string                `json:"method"`         // "cow_protocol", "uniswapx", "jupiter", "direct"
	MEVProtection string                `json:"mev_protection"` // "flashbots_protect+mev_blocker", "private_rpc", "standard"
	Priority      int                   `json:"priority"`
	SlippageBps   int                   `json:"slippage_bps"`
}

// ExecutionPlan is the executor's output.
type ExecutionPlan struct {
	Steps      []ExecutionStep `json:"steps"`
	Confidence float64         `json:"confidence"`
}

// CycleContext is the shared state one decision cycle accumulates as each
// agent runs. Inputs are set by the orchestrator before the first agent.
type CycleContext struct {
	Market    domain.MarketSnapshot
	Portfolio domain.PortfolioSnapshot
	Advisory  *domain.Advisory
	RiskScan  *risk.Report

	MarketView *MarketView
	RiskView   *RiskView
	Proposal   *Proposal
	Plan       *ExecutionPlan

	Messages []Message
}

// Agent is one specialist in the decision cycle. Process reads the cycle
// context, writes its typed view into it and returns a transcript message.
type Agent interface {
	Role() Role
	Process(ctx context.Context, cycle *CycleContext) (Message, error)
}
