package stoploss

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
	"github.com/kyrou/warden/internal/tracker"
)

// Alert signals that a position hit an exit trigger.
type Alert struct {
	PositionID  string    `json:"position_id"`
	PoolID      string    `json:"pool_id"`
	Chain       string    `json:"chain"`
	ProtocolID  string    `json:"protocol_id"`
	LossPct     float64   `json:"loss_pct"`
	LossUSD     float64   `json:"loss_usd"`
	TriggerType string    `json:"trigger_type"` // "stop_loss", "trailing_stop", "apr_drop"
	Action      string    `json:"action"`       // "exit", "alert"
	SignalID    string    `json:"signal_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Monitor checks positions for fixed stop-loss, trailing stop and APR-drop
// triggers. Peak values live in the shared tracker store so trailing stops
// persist across cycles.
type Monitor struct {
	stopLossPct      float64
	trailingStopPct  float64
	aprDropThreshold float64
	store            *tracker.Store
	log              zerolog.Logger
}

// NewMonitor creates a stop-loss monitor with the default thresholds:
// 10% fixed stop, 15% trailing stop, 50% APR drop.
func NewMonitor(store *tracker.Store, log zerolog.Logger) *Monitor {
	return &Monitor{
		stopLossPct:      10.0,
		trailingStopPct:  15.0,
		aprDropThreshold: 50.0,
		store:            store,
		log:              log.With().Str("component", "stoploss").Logger(),
	}
}

// CheckPositions evaluates every position against the stop triggers.
// poolData is the latest pool universe keyed by pool ID.
func (m *Monitor) CheckPositions(positions []domain.Position, poolData map[string]domain.Pool) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	open := make(map[string]bool, len(positions))
	for _, pos := range positions {
		open[pos.PositionID] = true
	}
	// Position lifecycle: drop peaks for anything no longer open
	m.store.Retain(open)

	for _, pos := range positions {
		entryValue := pos.EntryValueUSD
		isNew := false
		if entryValue <= 0 {
			// New positions have no entry value yet; skip the fixed stop
			// but still run the trailing stop
			entryValue = pos.ValueUSD
			isNew = true
		}
		if entryValue <= 0 {
			continue
		}

		currentValue := pos.ValueUSD
		peak := m.store.Peak(pos.PositionID, entryValue)
		if currentValue > peak {
			peak = currentValue
		}
		m.store.ObservePeak(pos.PositionID, peak)

		// 1. Fixed stop loss
		if !isNew {
			lossPct := (entryValue - currentValue) / entryValue * 100
			if lossPct >= m.stopLossPct {
				alerts = append(alerts, m.alert(pos, lossPct, entryValue-currentValue, "stop_loss", "exit", now))
				continue
			}
		}

		// 2. Trailing stop from the running peak
		if peak > 0 {
			drawdownPct := (peak - currentValue) / peak * 100
			if drawdownPct >= m.trailingStopPct {
				alerts = append(alerts, m.alert(pos, drawdownPct, peak-currentValue, "trailing_stop", "exit", now))
				continue
			}
		}

		// 3. APR collapse
		pool, ok := poolData[pos.PoolID]
		currentAPR := 0.0
		if ok {
			currentAPR = pool.APRTotal
		}
		entryAPR := pos.EntryAPR
		if entryAPR <= 0 {
			entryAPR = currentAPR
		}
		if entryAPR > 0 {
			aprDrop := (entryAPR - currentAPR) / entryAPR * 100
			if aprDrop >= m.aprDropThreshold {
				alerts = append(alerts, m.alert(pos, aprDrop, 0, "apr_drop", "alert", now))
			}
		}
	}

	if len(alerts) > 0 {
		m.log.Warn().Int("alerts", len(alerts)).Msg("stop-loss triggers fired")
	}

	return alerts
}

func (m *Monitor) alert(pos domain.Position, lossPct, lossUSD float64, trigger, action string, now time.Time) Alert {
	return Alert{
		PositionID:  pos.PositionID,
		PoolID:      pos.PoolID,
		Chain:       pos.Chain,
		ProtocolID:  pos.ProtocolID,
		LossPct:     math.Round(lossPct*100) / 100,
		LossUSD:     math.Round(lossUSD*100) / 100,
		TriggerType: trigger,
		Action:      action,
		SignalID:    uuid.NewString(),
		Timestamp:   now,
	}
}
