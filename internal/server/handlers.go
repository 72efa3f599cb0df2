package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kyrou/warden/internal/history"
	"github.com/kyrou/warden/internal/orchestrator"
)

type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	DecisionCount int     `json:"decision_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, ramPct := s.systemStats()

	count := 0
	if s.history != nil {
		if n, err := s.history.Count(r.Context()); err == nil {
			count = n
		}
	}

	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startupTime).Seconds(),
		CPUPercent:    cpuPct,
		RAMPercent:    ramPct,
		DecisionCount: count,
	})
}

// systemStats samples CPU over a short window so the endpoint stays fast
// for pollers.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	decisions, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list decisions")
		s.respondError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []*orchestrator.ConsensusResult{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

func (s *Server) handleLatestDecision(w http.ResponseWriter, r *http.Request) {
	decision, err := s.history.Latest(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no decisions recorded yet")
			return
		}
		s.log.Error().Err(err).Msg("Failed to load latest decision")
		s.respondError(w, http.StatusInternalServerError, "failed to load latest decision")
		return
	}

	s.respondJSON(w, http.StatusOK, decision)
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	decision, err := s.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "decision not found")
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("Failed to load decision")
		s.respondError(w, http.StatusInternalServerError, "failed to load decision")
		return
	}

	s.respondJSON(w, http.StatusOK, decision)
}

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if s.triggerCycle == nil {
		s.respondError(w, http.StatusServiceUnavailable, "manual cycle triggering is not enabled")
		return
	}

	result, err := s.triggerCycle(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Manual cycle failed")
		s.respondError(w, http.StatusInternalServerError, "cycle failed: "+err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
