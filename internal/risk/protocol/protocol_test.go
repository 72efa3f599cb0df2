package protocol

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestScoreBlueChipProtocol(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	sc := s.ScoreProtocol("aave-v3", 0)

	// 30 TVL + 25 tier1 audit + 20 age + 15 clean record + 10 insurance
	assert.Equal(t, 100, sc.Total)
	assert.Equal(t, "low", sc.RiskTier)
	assert.True(t, sc.Known)
}

func TestScoreUnknownProtocolIsConservative(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	sc := s.ScoreProtocol("yolo-farm-9000", 500_000)

	// 2 TVL + 3 unaudited + 3 age + 15 no incidents + 3 no insurance
	assert.Equal(t, 26, sc.Total)
	assert.Equal(t, "critical", sc.RiskTier)
	assert.False(t, sc.Known)
}

func TestScoreLiveTVLOverridesBaseline(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	baseline := s.ScoreProtocol("gmx-v2", 0)
	drained := s.ScoreProtocol("gmx-v2", 5_000_000)

	assert.Equal(t, 25, baseline.TVLScore)
	assert.Equal(t, 8, drained.TVLScore)
	assert.Less(t, drained.Total, baseline.Total)
}

func TestScoreIncidentPenalty(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	clean := s.ScoreProtocol("uniswap-v3", 0)
	oneIncident := s.ScoreProtocol("compound-v3", 0)
	twoIncidents := s.ScoreProtocol("curve-dex", 0)

	assert.Equal(t, 15, clean.IncidentScore)
	assert.Equal(t, 10, oneIncident.IncidentScore)
	assert.Equal(t, 5, twoIncidents.IncidentScore)
}

func TestScoreAgeMatters(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	// Same TVL tier and audit tier, but eigenlayer is much younger than lido
	young := s.ScoreProtocol("eigenlayer", 0)
	mature := s.ScoreProtocol("lido", 0)

	assert.Equal(t, 10, young.AgeScore)
	assert.Equal(t, 20, mature.AgeScore)
}

func TestScoreAllCoversEveryInput(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	out := s.ScoreAll(map[string]float64{
		"aave-v3":    12_000_000_000,
		"pendle":     3_000_000_000,
		"mystery-v1": 2_000_000,
	})

	assert.Len(t, out, 3)
	assert.Equal(t, "low", out["aave-v3"].RiskTier)
	assert.Equal(t, "critical", out["mystery-v1"].RiskTier)
}

func TestScoreMidTierProtocol(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	// 25 TVL + 15 standard audit + 15 age + 10 one incident + 3 no insurance
	sc := s.ScoreProtocol("gmx-v2", 0)

	assert.Equal(t, 68, sc.Total)
	assert.Equal(t, "medium", sc.RiskTier)
}
