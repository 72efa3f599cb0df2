// Package domain contains the shared value types exchanged between the
// decision engine's components. All of them are plain data carriers; the
// external collectors own the authoritative state.
package domain

// AlphaSignal is one ranked signal from the external alpha scanner.
type AlphaSignal struct {
	Type        string `json:"type"` // e.g. "whale_move", "rug_pull", "tvl_crash", "exploit"
	Symbol      string `json:"symbol"`
	Chain       string `json:"chain"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // "low", "medium", "high"
}

// MarketSnapshot is the composite market view produced by the external
// sentiment collectors, consumed once per decision cycle.
type MarketSnapshot struct {
	CompositeScore  float64            `json:"composite_score"` // 0-100
	FearGreedIndex  float64            `json:"fear_greed_index"`
	FearGreedLabel  string             `json:"fear_greed_label"`
	MarketRegime    string             `json:"market_regime"` // "bull", "bear", "sideways", "volatile"
	Suggestion      string             `json:"suggestion"`
	BTCPriceUSD     float64            `json:"btc_price_usd"`
	BTC24hChangePct float64            `json:"btc_24h_change_pct"`
	ETHPriceUSD     float64            `json:"eth_price_usd"`
	ETH24hChangePct float64            `json:"eth_24h_change_pct"`
	GasGwei         map[string]float64 `json:"gas_gwei"`       // keyed by chain
	StablecoinUSD   map[string]float64 `json:"stablecoin_usd"` // peg prices keyed by symbol
	AlphaSignals    []AlphaSignal      `json:"alpha_signals"`
}

// Pool is one entry of the externally collected pool universe.
type Pool struct {
	PoolID       string  `json:"pool_id"`
	ProtocolID   string  `json:"protocol_id"`
	Chain        string  `json:"chain"`
	Symbol       string  `json:"symbol"`
	APRTotal     float64 `json:"apr_total"`
	TVLUSD       float64 `json:"tvl_usd"`
	TVLUSD24hAgo float64 `json:"tvl_usd_24h_ago"`
	RiskScore    float64 `json:"risk_score"` // 0-100
	ILRiskPct    float64 `json:"il_risk_pct"`
	Volatility   float64 `json:"volatility"` // APR volatility
}

// Position is one active position, owned by the external ledger.
// Collateral and debt fields are zero for non-leveraged positions.
type Position struct {
	PositionID    string  `json:"position_id"`
	PoolID        string  `json:"pool_id"`
	ProtocolID    string  `json:"protocol_id"`
	Chain         string  `json:"chain"`
	Symbol        string  `json:"symbol"`
	WalletAddress string  `json:"wallet_address"`
	ValueUSD      float64 `json:"value_usd"`
	EntryValueUSD float64 `json:"entry_value_usd"`
	PnLUSD        float64 `json:"pnl_usd"`
	EntryAPR      float64 `json:"entry_apr"`

	CollateralUSD        float64 `json:"collateral_usd"`
	DebtUSD              float64 `json:"debt_usd"`
	LiquidationThreshold float64 `json:"liquidation_threshold"` // e.g. 0.825
}

// PortfolioSnapshot bundles the pool universe and active positions.
type PortfolioSnapshot struct {
	Pools             []Pool               `json:"pools"`
	Positions         []Position           `json:"positions"`
	PortfolioValueUSD float64              `json:"portfolio_value_usd"`
	PortfolioPnLUSD   float64              `json:"portfolio_pnl_usd"`
	AvailableUSD      float64              `json:"available_usd"`   // Deployable capital this cycle
	PriceHistories    map[string][]float64 `json:"price_histories"` // keyed by pool ID, oldest first
}

// PoolByID builds a lookup map over the snapshot's pool universe.
func (p *PortfolioSnapshot) PoolByID() map[string]Pool {
	out := make(map[string]Pool, len(p.Pools))
	for _, pool := range p.Pools {
		out[pool.PoolID] = pool
	}
	return out
}

// Recommendation is one suggested action, either from the external advisor
// or from the rule-based strategy fallback.
type Recommendation struct {
	Action        string  `json:"action"` // "enter", "exit", "decrease", "increase", "compound", "hold"
	PoolID        string  `json:"pool_id"`
	Chain         string  `json:"chain"`
	AmountUSD     float64 `json:"amount_usd"`
	AllocationPct float64 `json:"allocation_pct"`
	Urgency       string  `json:"urgency"` // "low", "medium", "high"
	Reason        string  `json:"reason"`
}

// Advisory is the opaque result of the external LLM-backed advisor.
// The engine must produce a valid decision when it is absent.
type Advisory struct {
	MarketRegime         string             `json:"market_regime"` // "bull", "bear", "sideways", "volatile"
	RiskLevel            string             `json:"risk_level"`
	Confidence           float64            `json:"confidence"`
	Summary              string             `json:"summary"`
	Recommendations      []Recommendation   `json:"recommendations"`
	ParameterAdjustments map[string]float64 `json:"parameter_adjustments"`
}
