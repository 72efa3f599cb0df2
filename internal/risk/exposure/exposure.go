// Package exposure enforces portfolio exposure limits across chains,
// protocols and pools.
package exposure

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/domain"
)

// Action is a proposed capital movement checked against the limits before
// execution.
type Action struct {
	PoolID     string
	ProtocolID string
	Chain      string
	AmountUSD  float64
}

// Report is a fresh view of portfolio exposure. It is recomputed on every
// call; the external position ledger remains the source of truth.
type Report struct {
	TotalExposureUSD float64            `json:"total_exposure_usd"`
	ByChain          map[string]float64 `json:"by_chain"`
	ByProtocol       map[string]float64 `json:"by_protocol"`
	ByPool           map[string]float64 `json:"by_pool"`
	Violations       []string           `json:"violations"`
	UtilizationPct   float64            `json:"utilization_pct"`
}

// Gate tracks and enforces portfolio exposure limits.
type Gate struct {
	limits config.ExposureConfig
	log    zerolog.Logger
}

// NewGate creates an exposure gate with the given limits.
func NewGate(limits config.ExposureConfig, log zerolog.Logger) *Gate {
	return &Gate{
		limits: limits,
		log:    log.With().Str("component", "exposure").Logger(),
	}
}

// CheckExposure computes current exposure, optionally including a proposed
// action, and flags every dimension that exceeds its limit.
func (g *Gate) CheckExposure(positions []domain.Position, proposed *Action) Report {
	byChain := make(map[string]float64)
	byProtocol := make(map[string]float64)
	byPool := make(map[string]float64)
	var total float64

	add := func(chain, protocol, pool string, value float64) {
		if chain == "" {
			chain = "unknown"
		}
		if protocol == "" {
			protocol = "unknown"
		}
		if pool == "" {
			pool = "unknown"
		}
		byChain[chain] += value
		byProtocol[protocol] += value
		byPool[pool] += value
		total += value
	}

	for _, pos := range positions {
		add(pos.Chain, pos.ProtocolID, pos.PoolID, pos.ValueUSD)
	}
	if proposed != nil {
		add(proposed.Chain, proposed.ProtocolID, proposed.PoolID, proposed.AmountUSD)
	}

	var violations []string

	if total > g.limits.MaxTotalUSD {
		violations = append(violations, fmt.Sprintf(
			"Total exposure $%.0f exceeds limit $%.0f", total, g.limits.MaxTotalUSD))
	}
	violations = append(violations, dimensionViolations("Chain", byChain, total, g.limits.MaxPerChainPct)...)
	violations = append(violations, dimensionViolations("Protocol", byProtocol, total, g.limits.MaxPerProtocolPct)...)
	violations = append(violations, dimensionViolations("Pool", byPool, total, g.limits.MaxPerPoolPct)...)

	var utilization float64
	if g.limits.MaxTotalUSD > 0 {
		utilization = total / g.limits.MaxTotalUSD * 100
	}

	return Report{
		TotalExposureUSD: math.Round(total*100) / 100,
		ByChain:          byChain,
		ByProtocol:       byProtocol,
		ByPool:           byPool,
		Violations:       violations,
		UtilizationPct:   math.Round(utilization*100) / 100,
	}
}

// CanExecute reports whether an action is allowed under the exposure limits,
// including the per-transaction dollar ceiling.
func (g *Gate) CanExecute(positions []domain.Position, action Action) (bool, string) {
	report := g.CheckExposure(positions, &action)

	if len(report.Violations) > 0 {
		reason := strings.Join(report.Violations, "; ")
		g.log.Warn().Str("reason", reason).Msg("action blocked")
		return false, reason
	}

	if action.AmountUSD > g.limits.MaxSingleTxUSD {
		return false, fmt.Sprintf(
			"Amount $%.0f exceeds single tx limit $%.0f", action.AmountUSD, g.limits.MaxSingleTxUSD)
	}

	return true, "OK"
}

func dimensionViolations(label string, values map[string]float64, total, limitPct float64) []string {
	if total <= 0 {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		pct := values[k] / total * 100
		if pct > limitPct {
			out = append(out, fmt.Sprintf("%s %s: %.1f%% exceeds limit %.0f%%", label, k, pct, limitPct))
		}
	}
	return out
}
