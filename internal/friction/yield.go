package friction

import (
	"math"
)

// CompoundPlan is the result of the optimal compounding frequency search.
type CompoundPlan struct {
	PoolID           string  `json:"pool_id"`
	PositionValueUSD float64 `json:"position_value_usd"`
	APRPct           float64 `json:"apr_pct"`
	Chain            string  `json:"chain"`
	CompoundGasUSD   float64 `json:"compound_gas_usd"`

	OptimalFrequencyHours float64 `json:"optimal_frequency_hours"`
	OptimalFrequencyDays  float64 `json:"optimal_frequency_days"`
	CompoundsPerYear      int     `json:"compounds_per_year"`
	GasCostPerYearUSD     float64 `json:"gas_cost_per_year_usd"`
	ExtraYieldUSD         float64 `json:"extra_yield_usd"` // Compounding gain over simple interest
	NetBenefitUSD         float64 `json:"net_benefit_usd"`
	IsWorthCompounding    bool    `json:"is_worth_compounding"`
}

// NetYieldEstimate is the realistic net yield after all friction.
type NetYieldEstimate struct {
	PoolID                    string  `json:"pool_id"`
	Chain                     string  `json:"chain"`
	Protocol                  string  `json:"protocol"`
	GrossAPRPct               float64 `json:"gross_apr_pct"`
	EntryFrictionPct          float64 `json:"entry_friction_pct"`
	ExitFrictionPct           float64 `json:"exit_friction_pct"`
	CompoundFrictionAnnualPct float64 `json:"compound_friction_annual_pct"`
	AnnualGasDragPct          float64 `json:"annual_gas_drag_pct"`
	NetAPRPct                 float64 `json:"net_apr_pct"`
	BreakevenDays             int     `json:"breakeven_days"`
	MinPositionUSD            float64 `json:"min_position_usd"`
	Verdict                   string  `json:"verdict"` // "profitable", "marginal", "unprofitable"
}

const maxCompoundsPerYear = 8760 // At most once per hour

// OptimalCompoundFrequency searches for the compounding frequency that
// maximizes compounding gain minus gas:
//
//	extra(n) = P((1+r/n)^n - 1) - P*r,  cost(n) = n * gasPerCompound
//
// For small positions no frequency is net-positive and compounding is not
// worth doing at all.
func (c *Calculator) OptimalCompoundFrequency(
	poolID string,
	positionValueUSD float64,
	aprPct float64,
	chain string,
) CompoundPlan {
	chainGas := c.chainGas(chain)
	compoundGas := gasOrDefault(chainGas, OpCompound, 0.15)

	r := aprPct / 100

	notWorth := CompoundPlan{
		PoolID:                poolID,
		PositionValueUSD:      positionValueUSD,
		APRPct:                aprPct,
		Chain:                 chain,
		CompoundGasUSD:        compoundGas,
		OptimalFrequencyHours: math.Inf(1),
		OptimalFrequencyDays:  math.Inf(1),
	}

	if r <= 0 || positionValueUSD <= 0 {
		return notWorth
	}

	bestN := 0
	bestNet := 0.0
	simpleYield := positionValueUSD * r

	for n := 1; n <= maxCompoundsPerYear; n++ {
		fn := float64(n)
		compoundYield := positionValueUSD * (math.Pow(1+r/fn, fn) - 1)
		net := (compoundYield - simpleYield) - fn*compoundGas
		if net > bestNet {
			bestNet = net
			bestN = n
		}
	}

	if bestN == 0 {
		return notWorth
	}

	fn := float64(bestN)
	hours := float64(maxCompoundsPerYear) / fn
	extra := positionValueUSD*(math.Pow(1+r/fn, fn)-1) - simpleYield
	gasTotal := fn * compoundGas

	c.log.Debug().
		Str("pool_id", poolID).
		Float64("every_hours", hours).
		Int("compounds_per_year", bestN).
		Float64("net_benefit_usd", bestNet).
		Msg("optimal compound frequency")

	return CompoundPlan{
		PoolID:                poolID,
		PositionValueUSD:      positionValueUSD,
		APRPct:                aprPct,
		Chain:                 chain,
		CompoundGasUSD:        compoundGas,
		OptimalFrequencyHours: math.Round(hours*10) / 10,
		OptimalFrequencyDays:  math.Round(hours/24*10) / 10,
		CompoundsPerYear:      bestN,
		GasCostPerYearUSD:     round2(gasTotal),
		ExtraYieldUSD:         round2(extra),
		NetBenefitUSD:         round2(bestNet),
		IsWorthCompounding:    bestNet > 0,
	}
}

// NetYieldAfterFriction converts a gross APR into the achievable net APR by
// amortizing entry and exit friction over the holding period and adding the
// annualized cost of optimal-frequency compounding.
func (c *Calculator) NetYieldAfterFriction(
	poolID string,
	chain string,
	protocol string,
	grossAPRPct float64,
	positionUSD float64,
	poolTVLUSD float64,
	holdingDays int,
) NetYieldEstimate {
	// Entry: add liquidity with a first-time approval
	entry := c.Calculate(OpAddLiquidity, chain, protocol, positionUSD, poolTVLUSD, true, false)

	// Exit: remove liquidity
	exit := c.Calculate(OpRemoveLiquidity, chain, protocol, positionUSD, poolTVLUSD, false, false)

	compound := c.OptimalCompoundFrequency(poolID, positionUSD, grossAPRPct, chain)
	compoundAnnualCost := compound.GasCostPerYearUSD
	var compoundAnnualPct float64
	if positionUSD > 0 {
		compoundAnnualPct = compoundAnnualCost / positionUSD * 100
	}

	var entryExitAnnualPct float64
	if positionUSD > 0 {
		entryExitAnnualPct = (entry.TotalFrictionUSD + exit.TotalFrictionUSD) /
			positionUSD * 100 * 365 / math.Max(float64(holdingDays), 1)
	}
	annualGasDragPct := entryExitAnnualPct + compoundAnnualPct

	netAPR := grossAPRPct - annualGasDragPct

	// Days of gross yield needed to cover entry + exit friction
	dailyGrossYield := positionUSD * grossAPRPct / 100 / 365
	totalEntryExit := entry.TotalFrictionUSD + exit.TotalFrictionUSD
	breakevenDays := 9999
	if dailyGrossYield > 0 {
		breakevenDays = int(math.Ceil(totalEntryExit / dailyGrossYield))
	}

	// Smallest position where fixed annual gas stays under 10% of gross yield
	annualGasFixed := entry.GasCostUSD + entry.ApprovalCostUSD + exit.GasCostUSD + compoundAnnualCost
	minPosition := math.Inf(1)
	if grossAPRPct > 0 {
		minPosition = annualGasFixed / (0.1 * grossAPRPct / 100)
	}

	var verdict string
	switch {
	case netAPR >= grossAPRPct*0.7:
		verdict = "profitable"
	case netAPR > 0:
		verdict = "marginal"
	default:
		verdict = "unprofitable"
	}

	c.log.Debug().
		Str("pool_id", poolID).
		Float64("gross_apr_pct", grossAPRPct).
		Float64("net_apr_pct", netAPR).
		Float64("annual_gas_drag_pct", annualGasDragPct).
		Int("breakeven_days", breakevenDays).
		Str("verdict", verdict).
		Msg("net yield after friction")

	return NetYieldEstimate{
		PoolID:                    poolID,
		Chain:                     chain,
		Protocol:                  protocol,
		GrossAPRPct:               round4(grossAPRPct),
		EntryFrictionPct:          round4(entry.FrictionPct),
		ExitFrictionPct:           round4(exit.FrictionPct),
		CompoundFrictionAnnualPct: round4(compoundAnnualPct),
		AnnualGasDragPct:          round4(annualGasDragPct),
		NetAPRPct:                 round4(netAPR),
		BreakevenDays:             breakevenDays,
		MinPositionUSD:            round2(minPosition),
		Verdict:                   verdict,
	}
}

// MinimumProfitableAmount returns the smallest position that covers friction
// for a given chain, protocol, APR and holding period. Returns +Inf when the
// yield cannot cover the variable costs at any size.
func (c *Calculator) MinimumProfitableAmount(
	chain string,
	protocol string,
	aprPct float64,
	holdingDays int,
) float64 {
	chainGas := c.chainGas(chain)

	fixedCost := gasOrDefault(chainGas, OpAddLiquidity, 0.1) +
		gasOrDefault(chainGas, OpRemoveLiquidity, 0.08) +
		gasOrDefault(chainGas, OpApprove, 0.02)

	feeRate, ok := c.feeRates[protocol]
	if !ok {
		feeRate = 0.003
	}
	// Trading fee + slippage allowance + MEV
	variableRate := feeRate + 0.001 + c.mevRate

	yieldRate := aprPct / 100 * float64(holdingDays) / 365
	netRate := yieldRate - variableRate*2 // Charged on entry and exit

	if netRate <= 0 {
		return math.Inf(1)
	}

	return round2(fixedCost / netRate)
}
