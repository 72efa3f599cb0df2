package stoploss

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/tracker"
)

func flatPrices(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// oscillatingPrices alternates price +/- amplitude so every true range is
// exactly 2*amplitude, which makes the smoothed ATR deterministic.
func oscillatingPrices(n int, base, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base + amplitude
		} else {
			out[i] = base - amplitude
		}
	}
	return out
}

func TestDynamicStopRegimes(t *testing.T) {
	e := NewDynamicStopEngine(zerolog.Nop())

	t.Run("flat history is a low-volatility regime", func(t *testing.T) {
		stop := e.GetDynamicStop("p1", 100, flatPrices(30, 100))

		assert.Equal(t, "low", stop.VolatilityRegime)
		assert.InDelta(t, 7.0, stop.AdjustedStopPct, 1e-9) // 10% * 0.7
	})

	t.Run("wild swings are an extreme regime", func(t *testing.T) {
		// +/-5 around 100: every move is 10, ATR/price ~0.1 > 0.08
		stop := e.GetDynamicStop("p2", 100, oscillatingPrices(40, 100, 5))

		assert.Equal(t, "extreme", stop.VolatilityRegime)
		assert.InDelta(t, 20.0, stop.AdjustedStopPct, 1e-9) // 10% * 2.0
	})

	t.Run("moderate swings are a normal regime", func(t *testing.T) {
		// +/-1 around 100: moves of 2, ATR/price ~0.02
		stop := e.GetDynamicStop("p3", 100, oscillatingPrices(40, 100, 1))

		assert.Equal(t, "normal", stop.VolatilityRegime)
		assert.InDelta(t, 10.0, stop.AdjustedStopPct, 1e-9)
	})

	t.Run("short history falls back to low regime", func(t *testing.T) {
		stop := e.GetDynamicStop("p4", 100, oscillatingPrices(5, 100, 5))

		assert.Zero(t, stop.CurrentATR)
		assert.Equal(t, "low", stop.VolatilityRegime)
	})

	t.Run("zero price is unknown", func(t *testing.T) {
		stop := e.GetDynamicStop("p5", 0, flatPrices(30, 100))

		assert.Equal(t, "unknown", stop.VolatilityRegime)
		assert.InDelta(t, 10.0, stop.AdjustedStopPct, 1e-9)
	})

	t.Run("stop is clamped to bounds", func(t *testing.T) {
		for _, hist := range [][]float64{
			flatPrices(30, 100),
			oscillatingPrices(40, 100, 0.8),
			oscillatingPrices(40, 100, 3),
			oscillatingPrices(40, 100, 10),
		} {
			stop := e.GetDynamicStop("p", 100, hist)
			assert.GreaterOrEqual(t, stop.AdjustedStopPct, 3.0)
			assert.LessOrEqual(t, stop.AdjustedStopPct, 25.0)
		}
	})
}

func TestMonitorFixedStop(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())

	positions := []domain.Position{
		{PositionID: "p1", PoolID: "pool-a", Chain: "arbitrum", ProtocolID: "uniswap-v3",
			EntryValueUSD: 1_000, ValueUSD: 880, EntryAPR: 20},
	}
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 20}}

	alerts := m.CheckPositions(positions, pools)

	require.Len(t, alerts, 1)
	assert.Equal(t, "stop_loss", alerts[0].TriggerType)
	assert.Equal(t, "exit", alerts[0].Action)
	assert.InDelta(t, 12.0, alerts[0].LossPct, 1e-9)
	assert.InDelta(t, 120.0, alerts[0].LossUSD, 1e-9)
	assert.NotEmpty(t, alerts[0].SignalID)
}

func TestMonitorTrailingStop(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 20}}

	// Cycle 1: position runs up to 1500, no trigger
	up := []domain.Position{{PositionID: "p1", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_500, EntryAPR: 20}}
	alerts := m.CheckPositions(up, pools)
	assert.Empty(t, alerts)

	// Cycle 2: pullback to 1250 is a 16.7% drawdown from the peak, over the
	// 15% trailing threshold, while still above entry (fixed stop silent)
	down := []domain.Position{{PositionID: "p1", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_250, EntryAPR: 20}}
	alerts = m.CheckPositions(down, pools)

	require.Len(t, alerts, 1)
	assert.Equal(t, "trailing_stop", alerts[0].TriggerType)
	assert.Equal(t, "exit", alerts[0].Action)
	assert.InDelta(t, 250.0, alerts[0].LossUSD, 1e-9)
}

func TestMonitorAPRDrop(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())

	positions := []domain.Position{
		{PositionID: "p1", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_020, EntryAPR: 40},
	}
	// APR collapsed from 40% to 15%: a 62.5% drop
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 15}}

	alerts := m.CheckPositions(positions, pools)

	require.Len(t, alerts, 1)
	assert.Equal(t, "apr_drop", alerts[0].TriggerType)
	assert.Equal(t, "alert", alerts[0].Action)
	assert.InDelta(t, 62.5, alerts[0].LossPct, 1e-9)
}

func TestMonitorNewPositionSkipsFixedStop(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())

	// No entry value: treated as a new position, fixed stop must not fire
	positions := []domain.Position{
		{PositionID: "p1", PoolID: "pool-a", ValueUSD: 900, EntryAPR: 20},
	}
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 20}}

	alerts := m.CheckPositions(positions, pools)

	assert.Empty(t, alerts)
}

func TestMonitorHealthyPositionIsQuiet(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())

	positions := []domain.Position{
		{PositionID: "p1", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_050, EntryAPR: 20},
	}
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 18}}

	alerts := m.CheckPositions(positions, pools)

	assert.Empty(t, alerts)
}

func TestMonitorDropsClosedPositions(t *testing.T) {
	store := tracker.NewStore(zerolog.Nop())
	m := NewMonitor(store, zerolog.Nop())
	pools := map[string]domain.Pool{"pool-a": {PoolID: "pool-a", APRTotal: 20}}

	both := []domain.Position{
		{PositionID: "p1", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_100, EntryAPR: 20},
		{PositionID: "p2", PoolID: "pool-a", EntryValueUSD: 1_000, ValueUSD: 1_100, EntryAPR: 20},
	}
	m.CheckPositions(both, pools)
	assert.Equal(t, 2, store.Len())

	// p2 closed: its peak state must be dropped
	one := both[:1]
	m.CheckPositions(one, pools)
	assert.Equal(t, 1, store.Len())
}
