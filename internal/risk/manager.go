// Package risk aggregates the individual risk monitors into one portfolio
// scan with a single overall severity.
package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/risk/blackswan"
	"github.com/kyrou/warden/internal/risk/correlation"
	"github.com/kyrou/warden/internal/risk/liquidation"
	"github.com/kyrou/warden/internal/risk/protocol"
	"github.com/kyrou/warden/internal/risk/stoploss"
	"github.com/kyrou/warden/internal/tracker"
)

// Report is the combined output of one full risk scan.
type Report struct {
	Timestamp       time.Time                 `json:"timestamp"`
	StopLossAlerts  []stoploss.Alert          `json:"stop_loss_alerts"`
	DynamicStops    []stoploss.DynamicStop    `json:"dynamic_stops"`
	Correlation     correlation.Risk          `json:"correlation"`
	BlackSwanAlerts []blackswan.Alert         `json:"black_swan_alerts"`
	Liquidations    []liquidation.Assessment  `json:"liquidations"`
	ProtocolScores  map[string]protocol.Score `json:"protocol_scores"`
	OverallRisk     string                    `json:"overall_risk"` // "low", "medium", "high", "critical", "emergency"
	ActionRequired  bool                      `json:"action_required"`
}

// Manager owns every risk monitor and runs them as one scan per cycle.
type Manager struct {
	stopLoss    *stoploss.Monitor
	dynamicStop *stoploss.DynamicStopEngine
	correlation *correlation.Monitor
	blackSwan   *blackswan.Detector
	liquidation *liquidation.Monitor
	protocols   *protocol.Scorer
	log         zerolog.Logger
}

// NewManager wires up all monitors around the shared tracker store.
func NewManager(store *tracker.Store, log zerolog.Logger) *Manager {
	return &Manager{
		stopLoss:    stoploss.NewMonitor(store, log),
		dynamicStop: stoploss.NewDynamicStopEngine(log),
		correlation: correlation.NewMonitor(store, log),
		blackSwan:   blackswan.NewDetector(log),
		liquidation: liquidation.NewMonitor(log),
		protocols:   protocol.NewScorer(log),
		log:         log.With().Str("component", "risk_manager").Logger(),
	}
}

// FullScan runs every monitor against the current snapshots and grades the
// overall severity.
func (m *Manager) FullScan(
	market domain.MarketSnapshot,
	portfolio domain.PortfolioSnapshot,
) Report {
	pools := make(map[string]domain.Pool, len(portfolio.Pools))
	protocolTVL := make(map[string]float64)
	for _, p := range portfolio.Pools {
		pools[p.PoolID] = p
		protocolTVL[p.ProtocolID] += p.TVLUSD
	}

	report := Report{
		Timestamp:       time.Now().UTC(),
		StopLossAlerts:  m.stopLoss.CheckPositions(portfolio.Positions, pools),
		Correlation:     m.correlation.Analyze(portfolio.Positions, portfolio.PriceHistories),
		BlackSwanAlerts: m.blackSwan.Scan(market, portfolio.Positions, pools),
		Liquidations:    m.liquidation.BatchAssess(portfolio.Positions),
		ProtocolScores:  m.protocols.ScoreAll(protocolTVL),
	}

	for _, pos := range portfolio.Positions {
		hist := portfolio.PriceHistories[pos.PoolID]
		if len(hist) == 0 {
			continue
		}
		report.DynamicStops = append(report.DynamicStops,
			m.dynamicStop.GetDynamicStop(pos.PositionID, hist[len(hist)-1], hist))
	}

	report.OverallRisk, report.ActionRequired = m.grade(report)

	m.log.Info().
		Str("overall_risk", report.OverallRisk).
		Bool("action_required", report.ActionRequired).
		Int("stop_alerts", len(report.StopLossAlerts)).
		Int("black_swan_alerts", len(report.BlackSwanAlerts)).
		Msg("risk scan complete")

	return report
}

// grade folds every monitor's output into one severity. The worst signal
// wins.
func (m *Manager) grade(r Report) (string, bool) {
	for _, a := range r.BlackSwanAlerts {
		if a.Severity == "emergency" {
			return "emergency", true
		}
	}

	critical := false
	for _, a := range r.BlackSwanAlerts {
		if a.Severity == "critical" {
			critical = true
		}
	}
	for _, l := range r.Liquidations {
		if l.RiskTier == "liquidatable" || l.RiskTier == "danger" {
			critical = true
		}
	}
	if critical {
		return "critical", true
	}

	if len(r.StopLossAlerts) > 0 || r.Correlation.RiskLevel == "high" || len(r.BlackSwanAlerts) > 0 {
		return "high", true
	}
	if r.Correlation.RiskLevel == "medium" {
		return "medium", false
	}
	for _, l := range r.Liquidations {
		if l.RiskTier == "warning" {
			return "medium", false
		}
	}
	return "low", false
}
