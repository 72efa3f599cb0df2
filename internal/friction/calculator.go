// Package friction models the all-in cost of DeFi operations: gas, protocol
// fees, slippage, price impact, bridge fees, MEV and token approvals. Only
// operations that stay profitable after all of these are worth executing.
package friction

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
)

// Breakdown is the per-component cost of a single operation.
type Breakdown struct {
	Operation string  `json:"operation"`
	Chain     string  `json:"chain"`
	Protocol  string  `json:"protocol"`
	AmountUSD float64 `json:"amount_usd"`

	GasCostUSD      float64 `json:"gas_cost_usd"`
	DexFeeUSD       float64 `json:"dex_fee_usd"`
	SlippageUSD     float64 `json:"slippage_usd"`
	PriceImpactUSD  float64 `json:"price_impact_usd"`
	BridgeFeeUSD    float64 `json:"bridge_fee_usd"`
	MEVCostUSD      float64 `json:"mev_cost_usd"`
	ApprovalCostUSD float64 `json:"approval_cost_usd"`

	TotalFrictionUSD float64 `json:"total_friction_usd"`
	FrictionPct      float64 `json:"friction_pct"`
	NetAmountUSD     float64 `json:"net_amount_usd"` // May be negative; that is a warning, not an error

	Warnings []string `json:"warnings,omitempty"`
}

// Calculator estimates transaction friction. All methods are pure; the
// calculator carries only lookup tables and may be shared freely.
type Calculator struct {
	gasCosts map[string]map[Operation]float64
	feeRates map[string]float64
	mevRate  float64
	log      zerolog.Logger
}

// NewCalculator creates a calculator with the default cost tables.
func NewCalculator(log zerolog.Logger) *Calculator {
	return NewCalculatorWithTables(defaultGasCostUSD, defaultFeeRates, 0.001, log)
}

// NewCalculatorWithTables creates a calculator with caller-supplied gas and
// fee tables, e.g. refreshed from a live gas oracle.
func NewCalculatorWithTables(
	gasCosts map[string]map[Operation]float64,
	feeRates map[string]float64,
	mevRate float64,
	log zerolog.Logger,
) *Calculator {
	return &Calculator{
		gasCosts: gasCosts,
		feeRates: feeRates,
		mevRate:  mevRate,
		log:      log.With().Str("component", "friction").Logger(),
	}
}

// Calculate computes the full friction breakdown for one operation.
// poolTVLUSD is used for slippage and price impact and may be zero when the
// pool depth is unknown (a conservative default slippage applies).
func (c *Calculator) Calculate(
	op Operation,
	chain string,
	protocol string,
	amountUSD float64,
	poolTVLUSD float64,
	needsApproval bool,
	isCrossChain bool,
) Breakdown {
	fb := Breakdown{
		Operation: string(op),
		Chain:     chain,
		Protocol:  protocol,
		AmountUSD: amountUSD,
	}

	chainGas := c.chainGas(chain)

	// Gas
	gas, ok := chainGas[op]
	if !ok {
		gas = chainGas[OpSwap]
		if gas == 0 {
			gas = 1.0
		}
	}
	fb.GasCostUSD = gas

	// First-time token approval
	if needsApproval {
		fb.ApprovalCostUSD = gasOrDefault(chainGas, OpApprove, 0.05)
	}

	// DEX trading fee, only for operations that trade
	if op == OpSwap || op == OpAddLiquidity || op == OpRemoveLiquidity || op == OpCompound {
		feeRate, ok := c.feeRates[protocol]
		if !ok {
			feeRate = 0.003
		}
		fb.DexFeeUSD = amountUSD * feeRate
	}

	// Slippage, scaled by pool depth and protocol family
	if op == OpSwap || op == OpAddLiquidity || op == OpCompound {
		fb.SlippageUSD = c.estimateSlippage(amountUSD, poolTVLUSD, protocol)
	}

	// Price impact for large trades
	if poolTVLUSD > 0 && (op == OpSwap || op == OpAddLiquidity) {
		fb.PriceImpactUSD = estimatePriceImpact(amountUSD, poolTVLUSD)
	}

	// MEV, only on chains with public mempools; worst on ethereum mainnet
	if op == OpSwap || op == OpAddLiquidity || op == OpCompound {
		switch chain {
		case "ethereum":
			fb.MEVCostUSD = amountUSD * c.mevRate * 2
		case "bsc", "polygon":
			fb.MEVCostUSD = amountUSD * c.mevRate
		}
	}

	// Bridge fee
	if isCrossChain {
		fb.BridgeFeeUSD = gasOrDefault(chainGas, OpBridge, 5.0)
	}

	fb.TotalFrictionUSD = fb.GasCostUSD + fb.DexFeeUSD + fb.SlippageUSD +
		fb.PriceImpactUSD + fb.BridgeFeeUSD + fb.MEVCostUSD + fb.ApprovalCostUSD

	if amountUSD > 0 {
		fb.FrictionPct = fb.TotalFrictionUSD / amountUSD * 100
	}
	fb.NetAmountUSD = amountUSD - fb.TotalFrictionUSD

	if fb.FrictionPct > 5 {
		fb.Warnings = append(fb.Warnings, fmt.Sprintf("friction is %.2f%% of trade amount", fb.FrictionPct))
	}
	if fb.PriceImpactUSD > amountUSD*0.01 {
		fb.Warnings = append(fb.Warnings, fmt.Sprintf("severe price impact $%.2f, consider splitting the trade", fb.PriceImpactUSD))
	}
	if fb.NetAmountUSD <= 0 {
		fb.Warnings = append(fb.Warnings, "friction exceeds trade amount, this trade loses money")
	}

	c.log.Debug().
		Str("operation", string(op)).
		Str("chain", chain).
		Str("protocol", protocol).
		Float64("amount_usd", amountUSD).
		Float64("net_usd", fb.NetAmountUSD).
		Float64("friction_pct", fb.FrictionPct).
		Msg("friction calculated")

	return fb
}

// estimateSlippage estimates slippage from trade size relative to pool depth.
// Curve-style StableSwap pools stay near-flat at low ratios, concentrated
// liquidity grows faster at size, constant-product AMMs sit in between.
func (c *Calculator) estimateSlippage(amountUSD, poolTVLUSD float64, protocol string) float64 {
	if poolTVLUSD <= 0 {
		return amountUSD * 0.005 // Unknown depth, assume 0.5%
	}

	ratio := amountUSD / poolTVLUSD
	proto := strings.ToLower(protocol)

	var slippagePct float64
	switch {
	case strings.Contains(proto, "curve"):
		if ratio < 0.01 {
			slippagePct = ratio * 100 * 0.1
		} else {
			slippagePct = ratio * ratio * 100 * 10
		}
	case strings.Contains(proto, "uniswap"):
		// Concentrated liquidity, assume ~4x capital efficiency on average
		switch {
		case ratio < 0.001:
			slippagePct = ratio * 100 * 0.3
		case ratio < 0.01:
			slippagePct = ratio * 100 * 0.8
		default:
			slippagePct = ratio * 100 * 1.5
		}
	case strings.Contains(proto, "balancer"):
		if ratio < 0.001 {
			slippagePct = ratio * 100 * 0.4
		} else {
			slippagePct = ratio * 100 * 1.0
		}
	default:
		// Standard x*y=k AMM
		switch {
		case ratio < 0.001:
			slippagePct = ratio * 100 * 0.5
		case ratio < 0.01:
			slippagePct = ratio * 100 * 1.0
		default:
			slippagePct = ratio * 100 * 2.0
		}
	}

	return amountUSD * slippagePct / 100
}

// estimatePriceImpact models impact as (amount/tvl)^2 of the trade amount.
func estimatePriceImpact(amountUSD, poolTVLUSD float64) float64 {
	if poolTVLUSD <= 0 {
		return 0
	}
	ratio := amountUSD / poolTVLUSD
	return amountUSD * ratio * ratio
}

func (c *Calculator) chainGas(chain string) map[Operation]float64 {
	if g, ok := c.gasCosts[chain]; ok {
		return g
	}
	// Unknown chains fall back to the most expensive baseline
	return c.gasCosts["ethereum"]
}

func gasOrDefault(chainGas map[Operation]float64, op Operation, def float64) float64 {
	if v, ok := chainGas[op]; ok {
		return v
	}
	return def
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
