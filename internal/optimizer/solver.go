package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// solveMaxSharpe finds weights maximizing (w·r - riskFree) / sqrt(w'Σw) with
// a diagonal covariance Σ = diag(risk²), subject to Σw = 1, 0 ≤ w_i ≤
// maxPerPool, and per-chain grouped weight ≤ maxPerChain.
//
// Constraints are enforced with a penalty method: bounds by projection, the
// sum and chain-cap constraints as quadratic penalty terms. BFGS is tried
// first, Nelder-Mead as fallback.
func solveMaxSharpe(
	returns []float64,
	risks []float64,
	chains []string,
	riskFreeRate float64,
	maxPerPool float64,
	maxPerChain float64,
) ([]float64, error) {
	n := len(returns)
	if n == 0 {
		return nil, fmt.Errorf("no candidates to solve for")
	}
	if len(risks) != n || len(chains) != n {
		return nil, fmt.Errorf("input length mismatch: returns=%d risks=%d chains=%d", n, len(risks), len(chains))
	}

	// Diagonal covariance: pools treated as uncorrelated
	variances := make([]float64, n)
	for i, r := range risks {
		variances[i] = r * r
	}

	chainIndices := make(map[string][]int)
	for i, ch := range chains {
		chainIndices[ch] = append(chainIndices[ch], i)
	}

	const penaltyWeight = 1000.0

	project := func(x []float64) []float64 {
		proj := make([]float64, len(x))
		for i := range x {
			proj[i] = math.Max(0, math.Min(maxPerPool, x[i]))
		}
		return proj
	}

	chainPenalty := func(x []float64) float64 {
		var penalty float64
		for _, indices := range chainIndices {
			var w float64
			for _, i := range indices {
				w += x[i]
			}
			if w > maxPerChain {
				penalty += penaltyWeight * (w - maxPerChain) * (w - maxPerChain)
			}
		}
		return penalty
	}

	addChainPenaltyGradient := func(grad, x []float64) {
		for _, indices := range chainIndices {
			var w float64
			for _, i := range indices {
				w += x[i]
			}
			if w > maxPerChain {
				p := 2 * penaltyWeight * (w - maxPerChain)
				for _, i := range indices {
					grad[i] += p
				}
			}
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := project(x)

			var returnVal, variance, sum float64
			for i := 0; i < n; i++ {
				returnVal += returns[i] * xProj[i]
				variance += xProj[i] * xProj[i] * variances[i]
				sum += xProj[i]
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			obj := -(returnVal - riskFreeRate) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += chainPenalty(xProj)

			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := project(x)

			var returnVal, variance, sum float64
			for i := 0; i < n; i++ {
				returnVal += returns[i] * xProj[i]
				variance += xProj[i] * xProj[i] * variances[i]
				sum += xProj[i]
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := returnVal - riskFreeRate

			for i := 0; i < n; i++ {
				// d/dw_i of -(excess/stdDev) with diagonal covariance
				dVariance := 2 * variances[i] * xProj[i]
				grad[i] = -returns[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
			addChainPenaltyGradient(grad, xProj)
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	// Project the final point and normalize to a proper weighting
	xFinal := project(result.X)
	sum := 0.0
	for _, w := range xFinal {
		sum += w
	}
	weights := make([]float64, n)
	for i := range xFinal {
		weights[i] = math.Max(0, xFinal[i]/math.Max(sum, 1e-10))
	}

	return weights, nil
}
