package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/factorlab/internal/modules/evaluation"
	"github.com/aristath/factorlab/internal/modules/reports"
	"github.com/aristath/factorlab/internal/services"
)

// handleEvaluate handles POST /api/evaluate. The optional JSON body can
// override the configured strategy and correlation method for this run.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var opts services.RunOptions
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	start := time.Now()
	run, err := s.runService.Run(r.Context(), opts)
	if errors.Is(err, services.ErrRunInProgress) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil && run == nil {
		s.writeError(w, http.StatusInternalServerError, "Evaluation failed: "+err.Error())
		return
	}

	s.log.Info().
		Str("run_id", run.RunID).
		Int("evaluated", len(run.Evaluations)).
		Int("failed", len(run.Failures)).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation run completed")
	s.writeJSON(w, http.StatusOK, run)
}

// handleListRuns handles GET /api/runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.repo.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []reports.RunSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleLatestRun handles GET /api/runs/latest.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.repo.LatestRun()
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleGetRun handles GET /api/runs/{runID}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.repo.GetRun(chi.URLParam(r, "runID"))
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleRanking handles GET /api/runs/{runID}/ranking. The optional sort
// query re-orders by a sub-score.
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.repo.GetRanking(chi.URLParam(r, "runID"))
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if metric := r.URL.Query().Get("sort"); metric != "" {
		if err := evaluation.SortRanking(ranking, metric); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if ranking == nil {
		ranking = []evaluation.RankingRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ranking": ranking})
}

// handleRedundancy handles GET /api/runs/{runID}/redundancy.
func (s *Server) handleRedundancy(w http.ResponseWriter, r *http.Request) {
	groups, err := s.repo.GetGroups(chi.URLParam(r, "runID"))
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

// handleSuggestions handles GET /api/runs/{runID}/suggestions.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.repo.GetSuggestions(chi.URLParam(r, "runID"))
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, suggestions)
}

// handleFactorRecord handles GET /api/runs/{runID}/factors/{factorID}/ic,
// returning the stored rolling IC record at the primary window/horizon.
func (s *Server) handleFactorRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.repo.GetRecord(chi.URLParam(r, "runID"), chi.URLParam(r, "factorID"))
	if errors.Is(err, reports.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run or factor not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if s.reportsDB != nil {
		if err := s.reportsDB.HealthCheck(ctx); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}
	}

	payload := map[string]interface{}{
		"status":     status,
		"database":   dbStatus,
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
		"goroutines": runtime.NumGoroutine(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		payload["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		payload["cpu_percent"] = percents[0]
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
