// Package orchestrator runs the decision cycle: risk scan, agent debate
// and the final weighted consensus.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/agents"
	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/risk"
)

// Consensus weights per agent. Risk and strategy carry the most because
// they decide whether and what to trade; execution only decides how.
const (
	weightMarket   = 0.20
	weightRisk     = 0.30
	weightStrategy = 0.35
	weightExecutor = 0.15

	// degradedConfidence is the contribution of an agent that failed.
	degradedConfidence = 0.10
	// failedRiskConfidence is higher: a failed risk evaluation produces a
	// synthetic veto, and that fail-safe posture is itself trustworthy.
	failedRiskConfidence = 0.50
)

// ConsensusResult is the terminal artifact of one decision cycle.
type ConsensusResult struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	Approved     bool                   `json:"approved"`
	MarketRegime string                 `json:"market_regime"`
	RiskLevel    string                 `json:"risk_level"`
	VetoCount    int                    `json:"veto_count"`
	Confidence   float64                `json:"confidence"`
	Reasoning    string                 `json:"reasoning"`
	Signals      []agents.ExecutionStep `json:"signals"`
	Transcript   []agents.Message       `json:"transcript"`
	Errors       []string               `json:"errors,omitempty"`
}

// Orchestrator owns the agents and drives one cycle at a time.
type Orchestrator struct {
	riskManager *risk.Manager
	market      agents.Agent
	riskAgent   agents.Agent
	strategist  agents.Agent
	executor    agents.Agent
	log         zerolog.Logger
}

// New wires the orchestrator. riskManager may be nil, in which case the
// pre-debate risk scan is skipped.
func New(
	riskManager *risk.Manager,
	market, riskAgent, strategist, executor agents.Agent,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		riskManager: riskManager,
		market:      market,
		riskAgent:   riskAgent,
		strategist:  strategist,
		executor:    executor,
		log:         log.With().Str("component", "orchestrator").Logger(),
	}
}

// RunCycle executes the five phases in order: risk scan, market analysis,
// risk evaluation, strategy, execution planning, then folds the agent
// outputs into a consensus. A cancelled context aborts the cycle with no
// partial result. A failing agent does not abort the cycle; its phase is
// recorded as an error and its consensus weight collapses.
func (o *Orchestrator) RunCycle(
	ctx context.Context,
	market domain.MarketSnapshot,
	portfolio domain.PortfolioSnapshot,
	advisory *domain.Advisory,
) (*ConsensusResult, error) {
	started := time.Now()
	cycle := &agents.CycleContext{
		Market:    market,
		Portfolio: portfolio,
		Advisory:  advisory,
	}
	var errs []string

	// Phase 1: mechanical risk scan, feeds the risk agent
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle aborted: %w", err)
	}
	if o.riskManager != nil {
		scan := o.riskManager.FullScan(market, portfolio)
		cycle.RiskScan = &scan
	}

	// Phases 2-5: the agent debate
	phases := []agents.Agent{o.market, o.riskAgent, o.strategist, o.executor}
	for _, agent := range phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cycle aborted: %w", err)
		}
		msg, err := o.runAgent(ctx, agent, cycle)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", agent.Role(), err))
			o.degrade(agent.Role(), cycle)
			continue
		}
		cycle.Messages = append(cycle.Messages, msg)
	}

	result := o.buildConsensus(cycle, errs)

	o.log.Info().
		Str("id", result.ID).
		Bool("approved", result.Approved).
		Int("vetoes", result.VetoCount).
		Int("signals", len(result.Signals)).
		Float64("confidence", result.Confidence).
		Dur("elapsed", time.Since(started)).
		Msg("decision cycle complete")

	return result, nil
}

// runAgent invokes one agent, converting panics into phase errors so a
// misbehaving agent cannot take the cycle down.
func (o *Orchestrator) runAgent(ctx context.Context, agent agents.Agent, cycle *agents.CycleContext) (msg agents.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return agent.Process(ctx, cycle)
}

// degrade fills a fail-safe view for a failed agent. A dead risk agent is
// treated as a veto; anything else just leaves its view empty.
func (o *Orchestrator) degrade(role agents.Role, cycle *agents.CycleContext) {
	if role != agents.RoleRiskManager {
		return
	}
	cycle.RiskView = &agents.RiskView{
		Vetoes:      []agents.Veto{{Severity: "critical", Reason: "Risk evaluation failed"}},
		OverallRisk: "critical",
		Confidence:  failedRiskConfidence,
	}
}

func (o *Orchestrator) buildConsensus(cycle *agents.CycleContext, errs []string) *ConsensusResult {
	marketConf, regime, sentiment := degradedConfidence, "unknown", "unknown"
	if cycle.MarketView != nil {
		marketConf = cycle.MarketView.Confidence
		regime = cycle.MarketView.Regime
		sentiment = cycle.MarketView.Sentiment
	}

	riskConf, riskLevel, vetoCount := degradedConfidence, "unknown", 0
	if cycle.RiskView != nil {
		riskConf = cycle.RiskView.Confidence
		riskLevel = cycle.RiskView.OverallRisk
		vetoCount = len(cycle.RiskView.Vetoes)
	}

	strategyConf := degradedConfidence
	if cycle.Proposal != nil {
		strategyConf = cycle.Proposal.Confidence
	}

	executorConf := degradedConfidence
	var signals []agents.ExecutionStep
	if cycle.Plan != nil {
		executorConf = cycle.Plan.Confidence
		signals = cycle.Plan.Steps
	}

	// A veto caps the cycle at exit-only regardless of what downstream
	// agents planned
	if vetoCount > 0 {
		filtered := signals[:0]
		for _, s := range signals {
			if s.Action.Action == "exit" {
				filtered = append(filtered, s)
			}
		}
		signals = filtered
	}

	confidence := weightMarket*marketConf +
		weightRisk*riskConf +
		weightStrategy*strategyConf +
		weightExecutor*executorConf

	return &ConsensusResult{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Approved:     vetoCount == 0,
		MarketRegime: regime,
		RiskLevel:    riskLevel,
		VetoCount:    vetoCount,
		Confidence:   round4(confidence),
		Reasoning: fmt.Sprintf("%s(%s) | risk=%s | vetoes=%d | signals=%d",
			regime, sentiment, riskLevel, vetoCount, len(signals)),
		Signals:    signals,
		Transcript: cycle.Messages,
		Errors:     errs,
	}
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
