// Package blackswan scans market and position data for extreme events that
// warrant an immediate circuit-breaker response.
package blackswan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
)

// EventType classifies a detected extreme event.
type EventType string

const (
	EventBlackSwan          EventType = "black_swan"
	EventStablecoinDepeg    EventType = "stablecoin_depeg"
	EventProtocolExploit    EventType = "protocol_exploit"
	EventGasSpike           EventType = "gas_spike"
	EventCorrelationBreach  EventType = "correlation_breach"
	EventLiquidationCascade EventType = "liquidation_cascade"
)

// Alert is one detected extreme event. Alerts are independent and additive;
// a single scan can produce several.
type Alert struct {
	EventType         EventType `json:"event_type"`
	Severity          string    `json:"severity"` // "warning", "critical", "emergency"
	Description       string    `json:"description"`
	AffectedPositions []string  `json:"affected_positions"`
	RecommendedAction string    `json:"recommended_action"` // "monitor", "reduce", "exit_all"
	AutoExecute       bool      `json:"auto_execute"`
	Timestamp         time.Time `json:"timestamp"`
}

// Detector watches for market crashes, stablecoin depegs, pool TVL
// collapses and gas spikes.
type Detector struct {
	crashThresholdPct  float64
	depegThresholdPct  float64
	tvlCrashPct        float64
	gasSpikeMultiplier float64
	baselineGasGwei    float64
	log                zerolog.Logger
}

// NewDetector creates a detector with the standard thresholds: 15% BTC/ETH
// 24h move, 2% stablecoin deviation, 50% TVL drop, 5x gas baseline.
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{
		crashThresholdPct:  15.0,
		depegThresholdPct:  2.0,
		tvlCrashPct:        50.0,
		gasSpikeMultiplier: 5.0,
		baselineGasGwei:    20.0,
		log:                log.With().Str("component", "blackswan").Logger(),
	}
}

// Scan runs every check against the current snapshots.
func (d *Detector) Scan(
	market domain.MarketSnapshot,
	positions []domain.Position,
	pools map[string]domain.Pool,
) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	allPositionIDs := make([]string, len(positions))
	for i, p := range positions {
		allPositionIDs[i] = p.PositionID
	}

	// 1. BTC/ETH extreme moves
	for _, check := range []struct {
		symbol string
		change float64
	}{
		{"BTC", market.BTC24hChangePct},
		{"ETH", market.ETH24hChangePct},
	} {
		if math.Abs(check.change) > d.crashThresholdPct {
			direction := "surge"
			if check.change < 0 {
				direction = "crash"
			}
			alerts = append(alerts, Alert{
				EventType:         EventBlackSwan,
				Severity:          "emergency",
				Description:       fmt.Sprintf("%s 24h %s %.1f%%", check.symbol, direction, math.Abs(check.change)),
				AffectedPositions: allPositionIDs,
				RecommendedAction: "exit_all",
				AutoExecute:       true,
				Timestamp:         now,
			})
		}
	}

	// 2. Stablecoin depegs; auto-execute only on deep deviations
	for symbol, price := range market.StablecoinUSD {
		deviation := math.Abs(price-1.0) * 100
		if deviation <= d.depegThresholdPct {
			continue
		}
		var affected []string
		for _, p := range positions {
			if strings.Contains(strings.ToUpper(p.Symbol), strings.ToUpper(symbol)) {
				affected = append(affected, p.PositionID)
			}
		}
		if len(affected) == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			EventType:         EventStablecoinDepeg,
			Severity:          "critical",
			Description:       fmt.Sprintf("%s depeg: $%.4f (%.2f%% off peg)", symbol, price, deviation),
			AffectedPositions: affected,
			RecommendedAction: "exit_all",
			AutoExecute:       deviation > 5.0,
			Timestamp:         now,
		})
	}

	// 3. Pool TVL collapse, a likely exploit
	for _, pos := range positions {
		pool, ok := pools[pos.PoolID]
		if !ok {
			continue
		}
		prevTVL := pool.TVLUSD24hAgo
		if prevTVL <= 0 {
			continue
		}
		tvlDrop := (prevTVL - pool.TVLUSD) / prevTVL * 100
		if tvlDrop > d.tvlCrashPct {
			alerts = append(alerts, Alert{
				EventType:         EventProtocolExploit,
				Severity:          "critical",
				Description:       fmt.Sprintf("Pool %s TVL dropped %.0f%% in 24h, possible exploit", pos.PoolID, tvlDrop),
				AffectedPositions: []string{pos.PositionID},
				RecommendedAction: "exit_all",
				AutoExecute:       true,
				Timestamp:         now,
			})
		}
	}

	// 4. Gas spike
	ethGas := market.GasGwei["ethereum"]
	if ethGas > d.baselineGasGwei*d.gasSpikeMultiplier {
		alerts = append(alerts, Alert{
			EventType:         EventGasSpike,
			Severity:          "warning",
			Description:       fmt.Sprintf("ETH gas abnormal: %.0f Gwei (baseline ~%.0f)", ethGas, d.baselineGasGwei),
			AffectedPositions: []string{},
			RecommendedAction: "monitor",
			AutoExecute:       false,
			Timestamp:         now,
		})
	}

	if len(alerts) > 0 {
		d.log.Warn().Int("alerts", len(alerts)).Msg("black swan scan fired")
		for _, a := range alerts {
			d.log.Warn().
				Str("severity", a.Severity).
				Str("action", a.RecommendedAction).
				Msg(a.Description)
		}
	}

	return alerts
}
