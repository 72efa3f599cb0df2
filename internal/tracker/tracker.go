// Package tracker holds the only engine-owned mutable state that survives
// across decision cycles: running peak values for trailing stops and the
// latest pairwise correlation readings. Entries are created when a position
// is first observed and removed when it closes.
//
// Cycles are serialized by the scheduler, so the store is single-writer by
// design and carries no locking.
package tracker

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Store keeps per-position peaks and per-pair correlations.
type Store struct {
	peaks        map[string]float64
	correlations map[string]float64
	log          zerolog.Logger
}

// snapshot is the msgpack wire form of the store.
type snapshot struct {
	Peaks        map[string]float64 `msgpack:"peaks"`
	Correlations map[string]float64 `msgpack:"correlations"`
}

// NewStore creates an empty tracker store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		peaks:        make(map[string]float64),
		correlations: make(map[string]float64),
		log:          log.With().Str("component", "tracker").Logger(),
	}
}

// ObservePeak records a value observation for a position and returns the
// running peak. The first observation seeds the peak.
func (s *Store) ObservePeak(positionID string, value float64) float64 {
	peak, ok := s.peaks[positionID]
	if !ok || value > peak {
		s.peaks[positionID] = value
		return value
	}
	return peak
}

// Peak returns the recorded peak for a position, or fallback when the
// position has not been observed yet.
func (s *Store) Peak(positionID string, fallback float64) float64 {
	if peak, ok := s.peaks[positionID]; ok {
		return peak
	}
	return fallback
}

// ClosePosition drops all tracked state for a closed position.
func (s *Store) ClosePosition(positionID string) {
	delete(s.peaks, positionID)
}

// Retain drops peaks for every position not in the open set. Called once per
// cycle so closed positions do not accumulate.
func (s *Store) Retain(openPositionIDs map[string]bool) {
	for id := range s.peaks {
		if !openPositionIDs[id] {
			delete(s.peaks, id)
		}
	}
}

// SetCorrelation stores the latest correlation reading for a pool pair.
func (s *Store) SetCorrelation(poolA, poolB string, correlation float64) {
	s.correlations[pairKey(poolA, poolB)] = correlation
}

// Correlation returns the last recorded correlation for a pool pair.
func (s *Store) Correlation(poolA, poolB string) (float64, bool) {
	v, ok := s.correlations[pairKey(poolA, poolB)]
	return v, ok
}

// ResetCorrelations clears the correlation cache before a fresh analysis.
func (s *Store) ResetCorrelations() {
	s.correlations = make(map[string]float64)
}

// Len reports the number of tracked positions.
func (s *Store) Len() int {
	return len(s.peaks)
}

// Save serializes the store to path with msgpack. Best effort: trailing
// stops survive restarts, but a failed save never blocks shutdown.
func (s *Store) Save(path string) error {
	data, err := msgpack.Marshal(snapshot{
		Peaks:        s.peaks,
		Correlations: s.correlations,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tracker snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tracker snapshot: %w", err)
	}
	s.log.Debug().Str("path", path).Int("positions", len(s.peaks)).Msg("tracker snapshot saved")
	return nil
}

// Load restores the store from a msgpack snapshot. A missing file is not an
// error; the store simply starts empty.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read tracker snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal tracker snapshot: %w", err)
	}

	if snap.Peaks != nil {
		s.peaks = snap.Peaks
	}
	if snap.Correlations != nil {
		s.correlations = snap.Correlations
	}
	s.log.Info().Str("path", path).Int("positions", len(s.peaks)).Msg("tracker snapshot restored")
	return nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
