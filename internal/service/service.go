// Package service runs one planning request end to end: decode, plan,
// journal, count and encode. Both the serial link and the HTTP API go
// through it so they behave identically.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/db"
	"github.com/Tahakcygt/HSS-ka/internal/geo"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/serialmux"
	"github.com/Tahakcygt/HSS-ka/internal/timeutil"
	"github.com/Tahakcygt/HSS-ka/internal/wire"
)

// Request sources, used as journal and metric labels.
const (
	SourceSerial = "serial"
	SourceHTTP   = "http"
	SourceCLI    = "cli"
)

// Journal stores planning decisions. *db.DB implements it.
type Journal interface {
	RecordDecision(db.Decision) error
}

// Config wires a Service. Only Planner is required.
type Config struct {
	Planner *planner.Planner
	Journal Journal
	Metrics *monitoring.Metrics
	// Clock stamps journal entries and snapshots. Defaults to the wall clock.
	Clock timeutil.Clock
}

// Snapshot is a completed planning cycle, kept for the scene views.
type Snapshot struct {
	Input  planner.Input
	Result planner.Result
	Home   *geo.Location // set for geodetic requests
	Source string
	At     time.Time
}

// Service answers planning requests. It is safe for concurrent use.
type Service struct {
	planner *planner.Planner
	journal Journal
	metrics *monitoring.Metrics
	clock   timeutil.Clock

	mu   sync.RWMutex
	last *Snapshot
}

// New returns a Service. A nil Planner uses the default parameters.
func New(cfg Config) *Service {
	pl := cfg.Planner
	if pl == nil {
		pl = planner.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Service{planner: pl, journal: cfg.Journal, metrics: cfg.Metrics, clock: clock}
}

// Planner returns the planner the service uses.
func (s *Service) Planner() *planner.Planner { return s.planner }

// Last returns the most recent successful planning cycle.
func (s *Service) Last() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Snapshot{}, false
	}
	return *s.last, true
}

// PlanLocal answers a local-format request.
func (s *Service) PlanLocal(source string, payload []byte) (wire.Response, error) {
	start := s.clock.Now()
	req, err := wire.DecodeRequest(bytes.NewReader(payload))
	if err != nil {
		return wire.Response{}, s.fail(source, start, err)
	}
	in, err := req.Input()
	if err != nil {
		return wire.Response{}, s.fail(source, start, err)
	}
	res, err := s.run(source, start, in, nil, payload)
	if err != nil {
		return wire.Response{}, err
	}
	return wire.NewResponse(res), nil
}

// PlanGeo answers a geodetic-format request. The response carries the
// waypoint in both frames.
func (s *Service) PlanGeo(source string, payload []byte) (wire.Response, error) {
	start := s.clock.Now()
	req, err := wire.DecodeGeoRequest(bytes.NewReader(payload))
	if err != nil {
		return wire.Response{}, s.fail(source, start, err)
	}
	in, home, err := req.Input()
	if err != nil {
		return wire.Response{}, s.fail(source, start, err)
	}
	res, err := s.run(source, start, in, &home, payload)
	if err != nil {
		return wire.Response{}, err
	}
	resp := wire.NewResponse(res)
	global := geo.ToGlobal(home, res.Waypoint)
	resp.WaypointGlobal = &global
	return resp, nil
}

// Plan runs a decoded input through the planner with journalling and
// metrics. Used by callers that build inputs themselves.
func (s *Service) Plan(source string, in planner.Input) (planner.Result, error) {
	return s.run(source, s.clock.Now(), in, nil, nil)
}

func (s *Service) run(source string, start time.Time, in planner.Input, home *geo.Location, payload []byte) (planner.Result, error) {
	res, err := s.planner.Plan(in)
	if err != nil {
		return planner.Result{}, s.fail(source, start, err)
	}

	monitoring.Logf("[%s] %s waypoint=%v zone=%d: %s", source, res.Mode, res.Waypoint, res.Zone, res.Reason)

	now := s.clock.Now()
	if s.journal != nil {
		d := db.NewDecision(source, in, res, payload)
		d.CreatedAt = now.UTC()
		if err := s.journal.RecordDecision(d); err != nil {
			// Journalling is best effort; the waypoint is still returned.
			monitoring.Logf("failed to journal decision: %v", err)
			if s.metrics != nil {
				s.metrics.JournalFailures.Inc()
			}
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveDecision(res.Mode.String(), source, len(in.Zones), s.clock.Since(start))
	}

	s.mu.Lock()
	s.last = &Snapshot{Input: in, Result: res, Home: home, Source: source, At: now}
	s.mu.Unlock()
	return res, nil
}

func (s *Service) fail(source string, start time.Time, err error) error {
	kind := planner.ErrorKind(err)
	monitoring.Logf("[%s] request rejected (%s): %v", source, kind, err)
	if s.metrics != nil {
		s.metrics.ObserveError(kind, source, s.clock.Since(start))
	}
	return err
}

// HandleLine answers one line from the serial link. Lines that are not
// planning requests get no reply.
func (s *Service) HandleLine(line string) (string, bool) {
	var (
		resp wire.Response
		err  error
	)
	payload := []byte(line)
	switch serialmux.ClassifyPayload(line) {
	case serialmux.EventTypeLocalRequest:
		resp, err = s.PlanLocal(SourceSerial, payload)
	case serialmux.EventTypeGeoRequest:
		resp, err = s.PlanGeo(SourceSerial, payload)
	default:
		monitoring.Logf("[%s] ignoring non-request line: %.80s", SourceSerial, line)
		return "", false
	}

	var out any = resp
	if err != nil {
		out = wire.NewErrorResponse(err)
	}
	b, merr := json.Marshal(out)
	if merr != nil {
		b, _ = json.Marshal(wire.NewErrorResponse(fmt.Errorf("encode response: %w", merr)))
	}
	return string(b), true
}
