package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/risk/exposure"
)

// ExecutionAgent routes proposed actions through the cheapest safe venue
// per chain and orders them by urgency. Capital-deploying actions are
// checked against the exposure gate before they make the plan.
type ExecutionAgent struct {
	gate *exposure.Gate
	log  zerolog.Logger
}

// NewExecutionAgent creates the executor. gate may be nil, which disables
// exposure enforcement (tests only).
func NewExecutionAgent(gate *exposure.Gate, log zerolog.Logger) *ExecutionAgent {
	return &ExecutionAgent{
		gate: gate,
		log:  log.With().Str("agent", string(RoleExecutor)).Logger(),
	}
}

func (a *ExecutionAgent) Role() Role { return RoleExecutor }

func (a *ExecutionAgent) Process(_ context.Context, cycle *CycleContext) (Message, error) {
	if cycle.Proposal == nil {
		return Message{}, fmt.Errorf("execution planning requires a strategy proposal")
	}

	steps := make([]ExecutionStep, 0, len(cycle.Proposal.Actions))
	for _, action := range cycle.Proposal.Actions {
		if action.Action == "hold" {
			continue
		}
		if blocked, reason := a.exposureBlocked(cycle, action); blocked {
			a.log.Warn().
				Str("pool", action.PoolID).
				Str("reason", reason).
				Msg("action blocked by exposure limits")
			continue
		}
		steps = append(steps, ExecutionStep{
			Action:        action,
			Method:        executionMethod(action.Chain, action.AmountUSD),
			MEVProtection: mevProtection(action.Chain),
			Priority:      priority(action),
			SlippageBps:   slippageBps(action.Chain, action.AmountUSD),
		})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority > steps[j].Priority
	})

	plan := &ExecutionPlan{Steps: steps, Confidence: 0.85}
	cycle.Plan = plan

	a.log.Debug().Int("steps", len(steps)).Msg("execution plan built")

	summary := fmt.Sprintf("%d execution steps planned", len(steps))
	return NewMessage(RoleExecutor, RoleOrchestrator, "execution_plan", summary, plan.Confidence), nil
}

// exposureBlocked checks capital-deploying actions against the exposure
// gate. Exits and decreases always pass, they reduce exposure.
func (a *ExecutionAgent) exposureBlocked(cycle *CycleContext, action domain.Recommendation) (bool, string) {
	if a.gate == nil {
		return false, ""
	}
	if action.Action != "enter" && action.Action != "increase" {
		return false, ""
	}
	ok, reason := a.gate.CanExecute(cycle.Portfolio.Positions, exposure.Action{
		PoolID:    action.PoolID,
		Chain:     action.Chain,
		AmountUSD: action.AmountUSD,
	})
	return !ok, reason
}

// executionMethod picks the venue: CoW for large Ethereum orders, intent
// routing where UniswapX is live, Jupiter on Solana, direct elsewhere.
func executionMethod(chain string, amountUSD float64) string {
	if chain == "ethereum" && amountUSD > 5_000 {
		return "cow_protocol"
	}
	switch chain {
	case "ethereum", "arbitrum", "base", "optimism":
		return "uniswapx"
	case "solana":
		return "jupiter"
	default:
		return "direct"
	}
}

func mevProtection(chain string) string {
	switch chain {
	case "ethereum":
		return "flashbots_protect+mev_blocker"
	case "arbitrum", "optimism", "base":
		return "private_rpc"
	default:
		return "standard"
	}
}

func priority(action domain.Recommendation) int {
	if action.Action == "exit" || action.Urgency == "high" {
		return 10
	}
	switch action.Action {
	case "decrease", "compound":
		return 5
	default:
		return 3
	}
}

// slippageBps widens tolerance for large orders and for Ethereum where
// inclusion can lag.
func slippageBps(chain string, amountUSD float64) int {
	bps := 50
	if amountUSD > 10_000 {
		bps = 100
	}
	if chain == "ethereum" {
		bps += 20
	}
	return bps
}
