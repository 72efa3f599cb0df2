package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestMarketSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "market.json", `{
		"composite_score": 62,
		"fear_greed_index": 55,
		"market_regime": "bull",
		"btc_24h_change_pct": 2.4,
		"gas_gwei": {"ethereum": 30},
		"stablecoin_usd": {"USDC": 1.0002}
	}`)
	p := NewFileProvider(dir, zerolog.Nop())

	snap, err := p.Market()

	require.NoError(t, err)
	assert.InDelta(t, 62.0, snap.CompositeScore, 1e-9)
	assert.Equal(t, "bull", snap.MarketRegime)
	assert.InDelta(t, 30.0, snap.GasGwei["ethereum"], 1e-9)
}

func TestMarketMissingFile(t *testing.T) {
	p := NewFileProvider(t.TempDir(), zerolog.Nop())

	_, err := p.Market()

	assert.Error(t, err)
}

func TestMarketMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "market.json", `{not json`)
	p := NewFileProvider(dir, zerolog.Nop())

	_, err := p.Market()

	assert.Error(t, err)
}

func TestPortfolioSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "portfolio.json", `{
		"available_usd": 10000,
		"pools": [{"pool_id": "pool-a", "chain": "arbitrum", "apr_total": 18, "tvl_usd": 50000000}],
		"positions": [{"position_id": "p1", "pool_id": "pool-a", "value_usd": 2000}],
		"price_histories": {"pool-a": [100, 101, 102]}
	}`)
	p := NewFileProvider(dir, zerolog.Nop())

	snap, err := p.Portfolio()

	require.NoError(t, err)
	assert.InDelta(t, 10_000.0, snap.AvailableUSD, 1e-9)
	require.Len(t, snap.Pools, 1)
	require.Len(t, snap.Positions, 1)
	assert.Len(t, snap.PriceHistories["pool-a"], 3)
}

func TestAdvisoryOptional(t *testing.T) {
	p := NewFileProvider(t.TempDir(), zerolog.Nop())

	advisory, err := p.Advisory()

	require.NoError(t, err)
	assert.Nil(t, advisory)
}

func TestAdvisoryPresent(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "advisory.json", `{
		"market_regime": "sideways",
		"confidence": 0.8,
		"recommendations": [{"action": "exit", "pool_id": "pool-b", "urgency": "high"}]
	}`)
	p := NewFileProvider(dir, zerolog.Nop())

	advisory, err := p.Advisory()

	require.NoError(t, err)
	require.NotNil(t, advisory)
	assert.InDelta(t, 0.8, advisory.Confidence, 1e-9)
	require.Len(t, advisory.Recommendations, 1)
	assert.Equal(t, "exit", advisory.Recommendations[0].Action)
}

func TestAdvisoryMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "advisory.json", `broken`)
	p := NewFileProvider(dir, zerolog.Nop())

	_, err := p.Advisory()

	assert.Error(t, err)
}
