// Package correlation monitors pairwise return correlation between open
// positions to catch concentrated exposure to a single risk factor.
package correlation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/tracker"
)

// minAlignedPoints is the minimum price history length per pool before a
// pair is considered.
const minAlignedPoints = 14

// Pair is one highly correlated position pair.
type Pair struct {
	PoolA       string  `json:"pool_a"`
	PoolB       string  `json:"pool_b"`
	Correlation float64 `json:"correlation"`
}

// Risk summarizes the portfolio's correlation structure.
type Risk struct {
	Pairs          []Pair  `json:"pairs"`
	MaxCorrelation float64 `json:"max_correlation"`
	ClusterCount   int     `json:"cluster_count"`
	RiskLevel      string  `json:"risk_level"` // "low", "medium", "high"
	Recommendation string  `json:"recommendation"`
}

// Monitor flags position pairs whose return correlation crosses the
// threshold. The latest readings are cached in the tracker store.
type Monitor struct {
	maxCorrelation float64
	store          *tracker.Store
	log            zerolog.Logger
}

// NewMonitor creates a correlation monitor with the default 0.8 threshold.
func NewMonitor(store *tracker.Store, log zerolog.Logger) *Monitor {
	return &Monitor{
		maxCorrelation: 0.8,
		store:          store,
		log:            log.With().Str("component", "correlation").Logger(),
	}
}

// Analyze computes Pearson correlation of returns for every position pair
// with enough aligned history and escalates risk with the count of flagged
// pairs: 0 low, 1-2 medium, 3+ high.
func (m *Monitor) Analyze(positions []domain.Position, priceHistories map[string][]float64) Risk {
	if len(positions) < 2 {
		return Risk{
			RiskLevel:      "low",
			Recommendation: "fewer than two positions, correlation analysis not applicable",
		}
	}

	m.store.ResetCorrelations()

	poolIDs := make([]string, len(positions))
	for i, p := range positions {
		poolIDs[i] = p.PoolID
	}

	var pairs []Pair
	var maxCorr float64

	for i := 0; i < len(poolIDs); i++ {
		for j := i + 1; j < len(poolIDs); j++ {
			histA := priceHistories[poolIDs[i]]
			histB := priceHistories[poolIDs[j]]
			if len(histA) < minAlignedPoints || len(histB) < minAlignedPoints {
				continue
			}

			// Align on the most recent shared window
			minLen := len(histA)
			if len(histB) < minLen {
				minLen = len(histB)
			}
			retA := returns(histA[len(histA)-minLen:])
			retB := returns(histB[len(histB)-minLen:])
			if len(retA) == 0 || len(retA) != len(retB) ||
				stat.StdDev(retA, nil) == 0 || stat.StdDev(retB, nil) == 0 {
				continue
			}

			corr := stat.Correlation(retA, retB, nil)
			if math.IsNaN(corr) {
				continue
			}
			m.store.SetCorrelation(poolIDs[i], poolIDs[j], corr)

			if math.Abs(corr) >= m.maxCorrelation {
				pairs = append(pairs, Pair{
					PoolA:       poolIDs[i],
					PoolB:       poolIDs[j],
					Correlation: math.Round(corr*1000) / 1000,
				})
				if math.Abs(corr) > maxCorr {
					maxCorr = math.Abs(corr)
				}
			}
		}
	}

	clusterCount := len(pairs)
	var level, rec string
	switch {
	case clusterCount == 0:
		level = "low"
		rec = "correlation structure is healthy, diversification sufficient"
	case clusterCount <= 2:
		level = "medium"
		rec = fmt.Sprintf("%d highly correlated pairs, consider diversifying", clusterCount)
	default:
		level = "high"
		rec = fmt.Sprintf("%d highly correlated pairs, strongly consider spreading across asset classes", clusterCount)
	}

	if clusterCount > 0 {
		m.log.Warn().Int("pairs", clusterCount).Float64("max_correlation", maxCorr).Msg("correlation breach")
	}

	return Risk{
		Pairs:          pairs,
		MaxCorrelation: maxCorr,
		ClusterCount:   clusterCount,
		RiskLevel:      level,
		Recommendation: rec,
	}
}

// returns converts a price series into simple period returns.
func returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
