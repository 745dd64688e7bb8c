// Package api exposes the detection service over HTTP: confirmed events,
// live pipeline statistics, and a runtime tuning surface.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/pipeline"
	"github.com/banshee-data/collision.report/internal/units"
	"github.com/banshee-data/collision.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline  *pipeline.Pipeline
	db        *db.DB
	sessionID int64
	units     string

	mu     sync.Mutex
	tuning *config.TuningConfig
}

// NewServer creates an API server over a running pipeline and its event
// store. tuning is the active configuration served and updated by
// /api/params.
func NewServer(p *pipeline.Pipeline, database *db.DB, sessionID int64, tuning *config.TuningConfig, displayUnits string) *Server {
	if !units.IsValid(displayUnits) {
		displayUnits = units.KPH
	}
	return &Server{
		pipeline:  p,
		db:        database,
		sessionID: sessionID,
		units:     displayUnits,
		tuning:    tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/healthz", s.healthz)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	events, err := s.db.Events(s.sessionID, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve events: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(events); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write events")
		return
	}
}

// statsResponse combines live pipeline counters with stored session
// aggregates.
type statsResponse struct {
	Pipeline pipeline.Stats   `json:"pipeline"`
	Session  *db.SessionStats `json:"session"`
	Units    string           `json:"units"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionStats, err := s.db.SessionStats(s.sessionID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve session stats: %v", err))
		return
	}

	// Speed percentiles are stored in km/h; convert for display.
	for k, v := range sessionStats.SpeedPercentiles {
		sessionStats.SpeedPercentiles[k] = convertFromKMH(v, s.units)
	}

	resp := statsResponse{
		Pipeline: s.pipeline.Stats(),
		Session:  sessionStats,
		Units:    s.units,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

func convertFromKMH(kmh float64, targetUnits string) float64 {
	switch targetUnits {
	case units.MPS:
		return kmh / 3.6
	case units.MPH:
		return kmh * 0.621371
	default:
		return kmh
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		tuning := s.tuning
		s.mu.Unlock()
		if err := json.NewEncoder(w).Encode(tuning); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write params")
		}
	case http.MethodPost:
		var update config.TuningConfig
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid params payload: %v", err))
			return
		}

		s.mu.Lock()
		merged, err := s.tuning.Merge(&update)
		if err == nil {
			s.tuning = merged
		}
		s.mu.Unlock()
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid params: %v", err))
			return
		}

		// Frame rate is the one tunable that applies mid-stream; the rest
		// take effect on the next session.
		if update.FPS != nil {
			s.pipeline.SetFPS(*update.FPS)
		}

		if err := json.NewEncoder(w).Encode(merged); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write params")
		}
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
