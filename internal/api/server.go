// Package api serves the planner over HTTP: planning requests in both
// wire formats, the decision journal, the effective tuning and a
// rendering of the most recent decision.
package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/db"
	"github.com/Tahakcygt/HSS-ka/internal/httputil"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/service"
	"github.com/Tahakcygt/HSS-ka/internal/version"
	"github.com/Tahakcygt/HSS-ka/internal/viz"
	"github.com/Tahakcygt/HSS-ka/internal/wire"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Journal listing limits for GET /decisions.
const (
	DefaultDecisionLimit = 50
	MaxDecisionLimit     = 1000
)

// maxRequestBytes bounds planning request bodies.
const maxRequestBytes = 1 << 20

// DecisionStore is the read side of the decision journal.
type DecisionStore interface {
	RecentDecisions(limit int) ([]db.Decision, error)
	ModeCounts() (map[string]int, error)
}

// SerialInfo describes the serial link the daemon is attached to.
type SerialInfo struct {
	Port    string `json:"port"`
	Options string `json:"options"`
	Enabled bool   `json:"enabled"`
}

// Config wires a Server. Service is required; a nil Store disables the
// journal endpoints.
type Config struct {
	Service *service.Service
	Store   DecisionStore
	Serial  SerialInfo
	// ListPorts enumerates serial devices. Defaults to serialmux.ListPorts.
	ListPorts func() ([]string, error)
}

type Server struct {
	svc       *service.Service
	store     DecisionStore
	serial    SerialInfo
	listPorts func() ([]string, error)
}

func NewServer(cfg Config) *Server {
	s := &Server{
		svc:       cfg.Service,
		store:     cfg.Store,
		serial:    cfg.Serial,
		listPorts: cfg.ListPorts,
	}
	if s.svc == nil {
		s.svc = service.New(service.Config{})
	}
	if s.listPorts == nil {
		s.listPorts = defaultListPorts
	}
	return s
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
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/plan/geo", s.handlePlanGeo)
	mux.HandleFunc("/decisions", s.listDecisions)
	mux.HandleFunc("/decisions/modes", s.showModeCounts)
	mux.HandleFunc("/config", s.showConfig)
	mux.HandleFunc("/scene", s.showScene)
	mux.HandleFunc("/scene.png", s.showScenePNG)
	mux.HandleFunc("/serial", s.showSerial)
	mux.HandleFunc("/serial/devices", s.handleSerialDevices)
	return mux
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	s.plan(w, r, s.svc.PlanLocal)
}

func (s *Server) handlePlanGeo(w http.ResponseWriter, r *http.Request) {
	s.plan(w, r, s.svc.PlanGeo)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request, run func(string, []byte) (wire.Response, error)) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.BadRequest(w, "failed to read request body")
		return
	}
	resp, err := run(service.SourceHTTP, body)
	if err != nil {
		httputil.WritePlanError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "decision journal is disabled")
		return
	}

	limit := DefaultDecisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxDecisionLimit)
	}

	decisions, err := s.store.RecentDecisions(limit)
	if err != nil {
		monitoring.Logf("failed to read decisions: %v", err)
		httputil.InternalServerError(w, "failed to read decisions")
		return
	}
	if decisions == nil {
		decisions = []db.Decision{}
	}
	httputil.WriteJSONOK(w, decisions)
}

func (s *Server) showModeCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "decision journal is disabled")
		return
	}
	counts, err := s.store.ModeCounts()
	if err != nil {
		monitoring.Logf("failed to count decisions: %v", err)
		httputil.InternalServerError(w, "failed to count decisions")
		return
	}
	httputil.WriteJSONOK(w, counts)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version": version.String(),
		"params":  s.svc.Planner().Params().Config(),
		"modes":   planner.Modes,
	})
}

func (s *Server) lastScene(w http.ResponseWriter, r *http.Request) (viz.Scene, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return viz.Scene{}, false
	}
	snap, ok := s.svc.Last()
	if !ok {
		httputil.NotFound(w, "no decision yet")
		return viz.Scene{}, false
	}
	scene := viz.FromPlan(snap.Input, snap.Result)
	scene.Title = snap.Result.Mode.String() + " via " + snap.Source + " at " + snap.At.Format(time.RFC3339)
	return scene, true
}

func (s *Server) showScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := s.lastScene(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := viz.RenderHTML(&buf, scene); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showScenePNG(w http.ResponseWriter, r *http.Request) {
	scene, ok := s.lastScene(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := viz.RenderPNG(&buf, scene); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showSerial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.serial)
}
