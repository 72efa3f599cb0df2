// Package optimizer allocates capital across candidate pools by maximizing
// the friction-adjusted portfolio Sharpe ratio under per-pool and per-chain
// weight caps.
package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/friction"
)

// PoolCandidate is one pool considered for allocation. NetAPR and
// EntryFrictionPct are filled in during optimization; the struct is scoped
// to a single Optimize call.
type PoolCandidate struct {
	PoolID     string
	ProtocolID string
	Chain      string
	Symbol     string
	APR        float64 // Gross APR in percent; replaced by the friction-adjusted value during optimization
	TVLUSD     float64
	RiskScore  float64 // 0-100
	ILRisk     float64 // Expected impermanent loss in percent
	Volatility float64 // APR volatility

	NetAPR           float64
	EntryFrictionPct float64
}

// Allocation is one immutable slice of the optimized portfolio.
type Allocation struct {
	PoolID      string  `json:"pool_id"`
	ProtocolID  string  `json:"protocol_id"`
	Chain       string  `json:"chain"`
	Symbol      string  `json:"symbol"`
	Weight      float64 `json:"weight"`
	AmountUSD   float64 `json:"amount_usd"`
	ExpectedAPR float64 `json:"expected_apr"`
	RiskScore   float64 `json:"risk_score"`
	Reason      string  `json:"reason"`
}

// Result is the terminal artifact of one optimization pass. A zero-candidate
// pass returns a valid empty Result, never an error.
type Result struct {
	Allocations          []Allocation `json:"allocations"`
	TotalAmountUSD       float64      `json:"total_amount_usd"`
	ExpectedPortfolioAPR float64      `json:"expected_portfolio_apr"`
	PortfolioRiskScore   float64      `json:"portfolio_risk_score"`
	SharpeRatio          float64      `json:"sharpe_ratio"`
	DiversificationScore float64      `json:"diversification_score"`
}

// Optimizer holds allocation limits and the friction model used to convert
// gross yields into usable ones.
type Optimizer struct {
	cfg      config.OptimizerConfig
	friction *friction.Calculator
	log      zerolog.Logger
}

// New creates a portfolio optimizer.
func New(cfg config.OptimizerConfig, fc *friction.Calculator, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		cfg:      cfg,
		friction: fc,
		log:      log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize finds the capital allocation across the candidate pools.
//
// Pipeline: risk filter, friction and IL adjustment, rank by risk-adjusted
// excess return, keep the top maxPositions, solve for max-Sharpe weights
// under the configured caps, then clean up immaterial weights.
func (o *Optimizer) Optimize(
	candidates []PoolCandidate,
	totalCapitalUSD float64,
	maxPositions int,
) Result {
	o.log.Info().
		Int("candidates", len(candidates)).
		Float64("capital_usd", totalCapitalUSD).
		Int("max_positions", maxPositions).
		Msg("optimizing portfolio")

	// 1. Filter by risk tolerance
	viable := make([]PoolCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.RiskScore <= o.cfg.MaxRiskScore {
			viable = append(viable, c)
		}
	}
	if len(viable) == 0 {
		o.log.Warn().Msg("no viable candidates after risk filtering")
		return Result{Allocations: []Allocation{}}
	}

	// 2. Convert gross APR into friction-adjusted net APR, using a
	// conservative even split to estimate position size, then drop
	// candidates whose adjusted return is non-positive.
	defaultPosition := math.Max(totalCapitalUSD/float64(len(viable)), o.cfg.MinAllocationUSD)
	adjusted := viable[:0]
	for i := range viable {
		c := &viable[i]
		est := o.friction.NetYieldAfterFriction(
			c.PoolID, c.Chain, c.ProtocolID, c.APR, defaultPosition, c.TVLUSD, 365,
		)
		c.NetAPR = est.NetAPRPct
		c.EntryFrictionPct = est.EntryFrictionPct
		c.APR = math.Max(0, c.NetAPR-c.ILRisk)
		if c.APR > 0 {
			adjusted = append(adjusted, *c)
		}
	}
	viable = adjusted

	if len(viable) == 0 {
		o.log.Warn().Msg("no profitable candidates after friction adjustment")
		return Result{Allocations: []Allocation{}}
	}

	// 3. Rank by risk-adjusted excess return and keep the top N
	sort.SliceStable(viable, func(i, j int) bool {
		si := (viable[i].APR - o.cfg.RiskFreeRate) / math.Max(viable[i].Volatility, 1)
		sj := (viable[j].APR - o.cfg.RiskFreeRate) / math.Max(viable[j].Volatility, 1)
		return si > sj
	})
	if maxPositions > 0 && len(viable) > maxPositions {
		viable = viable[:maxPositions]
	}
	selected := viable
	n := len(selected)

	// 4. Solve for max-Sharpe weights; degrade to equal weights on failure
	returns := make([]float64, n)
	risks := make([]float64, n)
	chains := make([]string, n)
	for i, c := range selected {
		returns[i] = c.APR
		risks[i] = math.Max(c.Volatility, 0.1)
		chains[i] = c.Chain
	}

	weights, err := solveMaxSharpe(returns, risks, chains, o.cfg.RiskFreeRate, o.cfg.MaxPerPoolPct, o.cfg.MaxPerChainPct)
	if err != nil {
		o.log.Warn().Err(err).Msg("solver failed, degrading to equal weights")
		weights = equalWeights(n)
	}

	// 5. Zero immaterial weights and renormalize
	sum := 0.0
	for i := range weights {
		if weights[i] < 0.01 {
			weights[i] = 0
		}
		sum += weights[i]
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}

	// Renormalization can nudge weights past the caps; clamp back and leave
	// the excess unallocated rather than redistributing it.
	for i := range weights {
		weights[i] = math.Min(weights[i], o.cfg.MaxPerPoolPct)
	}
	chainSums := make(map[string]float64)
	for i, ch := range chains {
		chainSums[ch] += weights[i]
	}
	for ch, s := range chainSums {
		if s > o.cfg.MaxPerChainPct {
			scale := o.cfg.MaxPerChainPct / s
			for i, c := range chains {
				if c == ch {
					weights[i] *= scale
				}
			}
		}
	}

	// 6. Build allocations, dropping anything under the USD floor
	allocations := make([]Allocation, 0, n)
	for i, c := range selected {
		w := weights[i]
		if w <= 0 {
			continue
		}
		amount := w * totalCapitalUSD
		if amount < o.cfg.MinAllocationUSD {
			continue
		}
		allocations = append(allocations, Allocation{
			PoolID:      c.PoolID,
			ProtocolID:  c.ProtocolID,
			Chain:       c.Chain,
			Symbol:      c.Symbol,
			Weight:      w,
			AmountUSD:   math.Round(amount*100) / 100,
			ExpectedAPR: c.APR,
			RiskScore:   c.RiskScore,
			Reason:      fmt.Sprintf("Sharpe-optimized: APR=%.1f%%, risk=%.0f", c.APR, c.RiskScore),
		})
	}

	result := o.buildResult(allocations, selected)

	o.log.Info().
		Int("positions", len(allocations)).
		Float64("expected_apr", result.ExpectedPortfolioAPR).
		Float64("sharpe", result.SharpeRatio).
		Float64("diversification", result.DiversificationScore).
		Msg("optimization complete")

	return result
}

func (o *Optimizer) buildResult(allocations []Allocation, selected []PoolCandidate) Result {
	if len(allocations) == 0 {
		return Result{Allocations: []Allocation{}}
	}

	volByPool := make(map[string]float64, len(selected))
	for _, c := range selected {
		volByPool[c.PoolID] = math.Max(c.Volatility, 0.1)
	}

	var portfolioAPR, varianceSum, hhi, totalAmount, riskScore float64
	for _, a := range allocations {
		portfolioAPR += a.Weight * a.ExpectedAPR
		vol := volByPool[a.PoolID]
		varianceSum += a.Weight * a.Weight * vol * vol
		hhi += a.Weight * a.Weight
		totalAmount += a.AmountUSD
		riskScore += a.RiskScore * a.Weight
	}
	portfolioRisk := math.Sqrt(varianceSum)
	sharpe := (portfolioAPR - o.cfg.RiskFreeRate) / math.Max(portfolioRisk, 0.01)

	return Result{
		Allocations:          allocations,
		TotalAmountUSD:       totalAmount,
		ExpectedPortfolioAPR: math.Round(portfolioAPR*10000) / 10000,
		PortfolioRiskScore:   math.Round(riskScore*100) / 100,
		SharpeRatio:          math.Round(sharpe*10000) / 10000,
		DiversificationScore: math.Round((1-hhi)*10000) / 10000,
	}
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
