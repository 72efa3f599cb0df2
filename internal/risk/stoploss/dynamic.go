// Package stoploss provides position exit triggers: fixed, trailing and
// APR-drop stops plus an ATR-driven dynamic stop width.
package stoploss

import (
	"math"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// DynamicStop is the volatility-adjusted stop width for one position.
type DynamicStop struct {
	PositionID       string  `json:"position_id"`
	BaseStopPct      float64 `json:"base_stop_pct"`
	ATRMultiplier    float64 `json:"atr_multiplier"`
	CurrentATR       float64 `json:"current_atr"`
	AdjustedStopPct  float64 `json:"adjusted_stop_pct"`
	VolatilityRegime string  `json:"volatility_regime"` // "low", "normal", "high", "extreme", "unknown"
}

// DynamicStopEngine widens stops in volatile markets and tightens them in
// calm ones, so normal noise does not trigger exits while real moves still
// do.
//
// Regime from ATR/price: <1% low (0.7x), <3% normal (1.0x), <8% high (1.5x),
// else extreme (2.0x). The result is clamped to [minStopPct, maxStopPct].
type DynamicStopEngine struct {
	baseStopPct   float64
	atrPeriod     int
	atrMultiplier float64
	minStopPct    float64
	maxStopPct    float64
	log           zerolog.Logger
}

// NewDynamicStopEngine creates an engine with the standard 14-period ATR and
// a 10% base stop clamped to [3%, 25%].
func NewDynamicStopEngine(log zerolog.Logger) *DynamicStopEngine {
	return &DynamicStopEngine{
		baseStopPct:   10.0,
		atrPeriod:     14,
		atrMultiplier: 1.5,
		minStopPct:    3.0,
		maxStopPct:    25.0,
		log:           log.With().Str("component", "dynamic_stop").Logger(),
	}
}

// GetDynamicStop computes the adjusted stop width for a position from its
// value history.
func (e *DynamicStopEngine) GetDynamicStop(positionID string, currentPrice float64, priceHistory []float64) DynamicStop {
	atr := e.calculateATR(priceHistory)

	if currentPrice <= 0 {
		return DynamicStop{
			PositionID:       positionID,
			BaseStopPct:      e.baseStopPct,
			ATRMultiplier:    e.atrMultiplier,
			AdjustedStopPct:  e.baseStopPct,
			VolatilityRegime: "unknown",
		}
	}

	atrRatio := atr / currentPrice

	var regime string
	var adjustment float64
	switch {
	case atrRatio < 0.01:
		regime, adjustment = "low", 0.7
	case atrRatio < 0.03:
		regime, adjustment = "normal", 1.0
	case atrRatio < 0.08:
		regime, adjustment = "high", 1.5
	default:
		regime, adjustment = "extreme", 2.0
	}

	adjusted := e.baseStopPct * adjustment
	adjusted = math.Max(e.minStopPct, math.Min(e.maxStopPct, adjusted))

	return DynamicStop{
		PositionID:       positionID,
		BaseStopPct:      e.baseStopPct,
		ATRMultiplier:    e.atrMultiplier,
		CurrentATR:       math.Round(atr*10000) / 10000,
		AdjustedStopPct:  math.Round(adjusted*100) / 100,
		VolatilityRegime: regime,
	}
}

// calculateATR computes the Average True Range over the configured period.
// Position histories carry one value per observation, so highs and lows are
// derived from consecutive closes; the true range then reduces to the
// absolute close-to-close move. Returns 0 when the history is too short.
func (e *DynamicStopEngine) calculateATR(priceHistory []float64) float64 {
	if len(priceHistory) < e.atrPeriod+1 {
		return 0
	}

	n := len(priceHistory)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, p := range priceHistory {
		closes[i] = p
		if i == 0 {
			high[i], low[i] = p, p
			continue
		}
		high[i] = math.Max(p, priceHistory[i-1])
		low[i] = math.Min(p, priceHistory[i-1])
	}

	atr := talib.Atr(high, low, closes, e.atrPeriod)
	if len(atr) == 0 {
		return 0
	}
	return atr[len(atr)-1]
}
