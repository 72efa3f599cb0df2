package correlation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/tracker"
)

func testMonitor() (*Monitor, *tracker.Store) {
	store := tracker.NewStore(zerolog.Nop())
	return NewMonitor(store, zerolog.Nop()), store
}

// trendingSeries produces a series with alternating noise so returns have
// nonzero variance but a deterministic shape.
func trendingSeries(n int, start, step, wobble float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		v += step
		if i%2 == 0 {
			out[i] = v + wobble
		} else {
			out[i] = v - wobble
		}
	}
	return out
}

func positions(poolIDs ...string) []domain.Position {
	out := make([]domain.Position, len(poolIDs))
	for i, id := range poolIDs {
		out[i] = domain.Position{PositionID: "pos-" + id, PoolID: id, ValueUSD: 1_000}
	}
	return out
}

func TestAnalyzeSinglePosition(t *testing.T) {
	m, _ := testMonitor()

	risk := m.Analyze(positions("a"), nil)

	assert.Equal(t, "low", risk.RiskLevel)
	assert.Zero(t, risk.ClusterCount)
}

func TestAnalyzePerfectlyCorrelatedPair(t *testing.T) {
	m, store := testMonitor()

	base := trendingSeries(30, 100, 1, 2)
	scaled := make([]float64, len(base))
	for i, v := range base {
		scaled[i] = v * 2 // Identical returns, correlation 1.0
	}

	risk := m.Analyze(positions("a", "b"), map[string][]float64{
		"a": base,
		"b": scaled,
	})

	require.Len(t, risk.Pairs, 1)
	assert.InDelta(t, 1.0, risk.Pairs[0].Correlation, 1e-6)
	assert.Equal(t, "medium", risk.RiskLevel)

	cached, ok := store.Correlation("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1.0, cached, 1e-6)
}

func TestAnalyzeAntiCorrelatedPairIsFlagged(t *testing.T) {
	m, _ := testMonitor()

	base := trendingSeries(30, 100, 0, 2)
	inverse := make([]float64, len(base))
	for i, v := range base {
		inverse[i] = 200 - v
	}

	risk := m.Analyze(positions("a", "b"), map[string][]float64{
		"a": base,
		"b": inverse,
	})

	// Threshold applies to |correlation|
	require.Len(t, risk.Pairs, 1)
	assert.Less(t, risk.Pairs[0].Correlation, 0.0)
}

func TestAnalyzeUncorrelatedPair(t *testing.T) {
	m, _ := testMonitor()

	// One oscillates with period 2, the other with period 4: near-zero
	// return correlation
	a := make([]float64, 40)
	b := make([]float64, 40)
	for i := range a {
		a[i] = 100 + 3*math.Pow(-1, float64(i))
		b[i] = 100 + 3*math.Sin(float64(i)*math.Pi/2)
	}

	risk := m.Analyze(positions("a", "b"), map[string][]float64{"a": a, "b": b})

	assert.Empty(t, risk.Pairs)
	assert.Equal(t, "low", risk.RiskLevel)
}

func TestAnalyzeInsufficientHistory(t *testing.T) {
	m, _ := testMonitor()

	risk := m.Analyze(positions("a", "b"), map[string][]float64{
		"a": trendingSeries(5, 100, 1, 2),
		"b": trendingSeries(5, 100, 1, 2),
	})

	assert.Empty(t, risk.Pairs)
	assert.Equal(t, "low", risk.RiskLevel)
}

func TestAnalyzeRiskEscalation(t *testing.T) {
	m, _ := testMonitor()

	base := trendingSeries(30, 100, 1, 2)
	histories := map[string][]float64{}
	for _, id := range []string{"a", "b", "c"} {
		s := make([]float64, len(base))
		copy(s, base)
		histories[id] = s
	}

	// Three identical series: 3 flagged pairs, high risk
	risk := m.Analyze(positions("a", "b", "c"), histories)

	assert.Equal(t, 3, risk.ClusterCount)
	assert.Equal(t, "high", risk.RiskLevel)
}

func TestAnalyzeFlatSeriesSkipped(t *testing.T) {
	m, _ := testMonitor()

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}

	risk := m.Analyze(positions("a", "b"), map[string][]float64{
		"a": flat,
		"b": trendingSeries(30, 100, 1, 2),
	})

	// Zero-variance series cannot produce a correlation
	assert.Empty(t, risk.Pairs)
}
