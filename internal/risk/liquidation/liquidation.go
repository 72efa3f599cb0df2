// Package liquidation assesses health factors for leveraged lending
// positions and recommends de-risking actions before liquidation hits.
package liquidation

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
)

// healthFactorNoDebt is the sentinel health factor for positions without
// outstanding debt.
const healthFactorNoDebt = 999.0

// liquidationPenalties are protocol liquidation bonus rates paid to the
// liquidator, i.e. the borrower's haircut.
var liquidationPenalties = map[string]float64{
	"aave-v3":     0.05,
	"compound-v3": 0.05,
	"maker":       0.13,
	"venus":       0.10,
}

const defaultPenalty = 0.05

// Assessment is the liquidation risk picture for one position.
type Assessment struct {
	PositionID        string    `json:"position_id"`
	ProtocolID        string    `json:"protocol_id"`
	Chain             string    `json:"chain"`
	HealthFactor      float64   `json:"health_factor"`
	RiskTier          string    `json:"risk_tier"` // "safe", "watch", "warning", "danger", "liquidatable"
	PriceDropToLiqPct float64   `json:"price_drop_to_liq_pct"`
	PotentialLossUSD  float64   `json:"potential_loss_usd"`
	RecommendedAction string    `json:"recommended_action"` // "none", "add_collateral", "repay_partial", "exit"
	ActionAmountUSD   float64   `json:"action_amount_usd"`
	Timestamp         time.Time `json:"timestamp"`
}

// Monitor grades lending positions into health-factor tiers.
type Monitor struct {
	safeThreshold    float64
	watchThreshold   float64
	warningThreshold float64
	log              zerolog.Logger
}

// NewMonitor creates a liquidation monitor with tier boundaries at health
// factors 2.0, 1.5 and 1.2.
func NewMonitor(log zerolog.Logger) *Monitor {
	return &Monitor{
		safeThreshold:    2.0,
		watchThreshold:   1.5,
		warningThreshold: 1.2,
		log:              log.With().Str("component", "liquidation").Logger(),
	}
}

// AssessRisk computes the health factor and recommended action for one
// position. Positions without debt are trivially safe.
func (m *Monitor) AssessRisk(pos domain.Position) Assessment {
	now := time.Now().UTC()

	a := Assessment{
		PositionID:        pos.PositionID,
		ProtocolID:        pos.ProtocolID,
		Chain:             pos.Chain,
		RecommendedAction: "none",
		Timestamp:         now,
	}

	if pos.DebtUSD <= 0 {
		a.HealthFactor = healthFactorNoDebt
		a.RiskTier = "safe"
		return a
	}

	hf := pos.CollateralUSD * pos.LiquidationThreshold / pos.DebtUSD
	a.HealthFactor = math.Round(hf*1000) / 1000

	// Collateral price drop that would push the health factor to 1.0
	if hf >= 1.0 {
		a.PriceDropToLiqPct = math.Round((1-1/hf)*100*100) / 100
	}

	switch {
	case hf >= m.safeThreshold:
		a.RiskTier = "safe"
	case hf >= m.watchThreshold:
		a.RiskTier = "watch"
	case hf >= m.warningThreshold:
		a.RiskTier = "warning"
		a.RecommendedAction = "add_collateral"
		a.ActionAmountUSD = math.Round(pos.CollateralUSD*0.2*100) / 100
	case hf >= 1.0:
		a.RiskTier = "danger"
		a.RecommendedAction = "repay_partial"
		a.ActionAmountUSD = math.Round(pos.DebtUSD*0.3*100) / 100
	default:
		a.RiskTier = "liquidatable"
		a.RecommendedAction = "exit"
		a.ActionAmountUSD = pos.DebtUSD

		penalty, ok := liquidationPenalties[pos.ProtocolID]
		if !ok {
			penalty = defaultPenalty
		}
		a.PotentialLossUSD = math.Round(pos.DebtUSD*penalty*100) / 100

		m.log.Error().
			Str("position", pos.PositionID).
			Float64("health_factor", a.HealthFactor).
			Float64("potential_loss_usd", a.PotentialLossUSD).
			Msg("position is liquidatable")
	}

	return a
}

// BatchAssess assesses every leveraged position, worst health factor
// first. Positions without debt are omitted.
func (m *Monitor) BatchAssess(positions []domain.Position) []Assessment {
	var out []Assessment
	for _, pos := range positions {
		if pos.DebtUSD <= 0 {
			continue
		}
		out = append(out, m.AssessRisk(pos))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].HealthFactor < out[j].HealthFactor
	})
	return out
}
