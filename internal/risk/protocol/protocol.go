// Package protocol scores DeFi protocol safety from TVL, audit history,
// age, incident record and insurance coverage.
package protocol

import (
	"time"

	"github.com/rs/zerolog"
)

// AuditTier grades the quality of a protocol's audit coverage.
type AuditTier string

const (
	AuditTier1    AuditTier = "tier1" // multiple reputable firms
	AuditStandard AuditTier = "audited"
	AuditNone     AuditTier = "unaudited"
)

// Profile is the static safety metadata for a known protocol.
type Profile struct {
	TVLUSD       float64
	Audit        AuditTier
	AgeDays      int
	Incidents    int
	HasInsurance bool
}

// knownProtocols is the curated metadata table. Protocols not listed get
// conservative defaults.
var knownProtocols = map[string]Profile{
	"aave-v3":     {TVLUSD: 12_000_000_000, Audit: AuditTier1, AgeDays: 1100, Incidents: 0, HasInsurance: true},
	"uniswap-v3":  {TVLUSD: 4_000_000_000, Audit: AuditTier1, AgeDays: 1700, Incidents: 0},
	"compound-v3": {TVLUSD: 1_800_000_000, Audit: AuditTier1, AgeDays: 1200, Incidents: 1},
	"curve-dex":   {TVLUSD: 2_000_000_000, Audit: AuditTier1, AgeDays: 1900, Incidents: 2},
	"lido":        {TVLUSD: 25_000_000_000, Audit: AuditTier1, AgeDays: 1800, Incidents: 0},
	"gmx-v2":      {TVLUSD: 500_000_000, Audit: AuditStandard, AgeDays: 700, Incidents: 1},
	"pendle":      {TVLUSD: 3_000_000_000, Audit: AuditStandard, AgeDays: 900, Incidents: 0},
	"eigenlayer":  {TVLUSD: 15_000_000_000, Audit: AuditTier1, AgeDays: 400, Incidents: 0},
	"hyperliquid": {TVLUSD: 2_000_000_000, Audit: AuditStandard, AgeDays: 600, Incidents: 0},
}

// Score is a 0-100 protocol safety grade with its component breakdown.
type Score struct {
	ProtocolID     string    `json:"protocol_id"`
	Total          int       `json:"total"`
	TVLScore       int       `json:"tvl_score"`
	AuditScore     int       `json:"audit_score"`
	AgeScore       int       `json:"age_score"`
	IncidentScore  int       `json:"incident_score"`
	InsuranceScore int       `json:"insurance_score"`
	RiskTier       string    `json:"risk_tier"` // "low", "medium", "high", "critical"
	Known          bool      `json:"known"`
	Timestamp      time.Time `json:"timestamp"`
}

// Scorer grades protocols against the curated metadata table.
type Scorer struct {
	log zerolog.Logger
}

func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{log: log.With().Str("component", "protocol_scorer").Logger()}
}

// ScoreProtocol grades one protocol. liveTVLUSD, when positive, overrides
// the table's TVL baseline so the grade tracks current conditions.
func (s *Scorer) ScoreProtocol(protocolID string, liveTVLUSD float64) Score {
	profile, known := knownProtocols[protocolID]
	if !known {
		profile = Profile{Audit: AuditNone}
		s.log.Debug().Str("protocol", protocolID).Msg("unknown protocol, scoring with conservative defaults")
	}

	tvl := profile.TVLUSD
	if liveTVLUSD > 0 {
		tvl = liveTVLUSD
	}

	sc := Score{
		ProtocolID: protocolID,
		Known:      known,
		Timestamp:  time.Now().UTC(),
	}

	switch {
	case tvl > 1_000_000_000:
		sc.TVLScore = 30
	case tvl > 100_000_000:
		sc.TVLScore = 25
	case tvl > 10_000_000:
		sc.TVLScore = 15
	case tvl > 1_000_000:
		sc.TVLScore = 8
	default:
		sc.TVLScore = 2
	}

	switch profile.Audit {
	case AuditTier1:
		sc.AuditScore = 25
	case AuditStandard:
		sc.AuditScore = 15
	default:
		sc.AuditScore = 3
	}

	switch {
	case profile.AgeDays > 1000:
		sc.AgeScore = 20
	case profile.AgeDays > 500:
		sc.AgeScore = 15
	case profile.AgeDays > 180:
		sc.AgeScore = 10
	default:
		sc.AgeScore = 3
	}

	sc.IncidentScore = 15 - 5*profile.Incidents
	if sc.IncidentScore < 0 {
		sc.IncidentScore = 0
	}

	if profile.HasInsurance {
		sc.InsuranceScore = 10
	} else {
		sc.InsuranceScore = 3
	}

	sc.Total = sc.TVLScore + sc.AuditScore + sc.AgeScore + sc.IncidentScore + sc.InsuranceScore
	if sc.Total > 100 {
		sc.Total = 100
	}

	switch {
	case sc.Total >= 80:
		sc.RiskTier = "low"
	case sc.Total >= 60:
		sc.RiskTier = "medium"
	case sc.Total >= 40:
		sc.RiskTier = "high"
	default:
		sc.RiskTier = "critical"
	}

	return sc
}

// ScoreAll grades a set of protocols keyed by ID, with live TVL readings
// where available.
func (s *Scorer) ScoreAll(liveTVL map[string]float64) map[string]Score {
	out := make(map[string]Score, len(liveTVL))
	for id, tvl := range liveTVL {
		out[id] = s.ScoreProtocol(id, tvl)
	}
	return out
}
