// Package planner is the reactive avoidance and interception decision
// engine.
//
// Each call to Plan evaluates four tiers in strict priority order and the
// first tier whose condition holds produces the waypoint:
//
//  1. ESCAPE: the vehicle is inside a zone; move straight out of it.
//  2. REPULSION: the vehicle is moving and its short lookahead segment
//     clips a zone; push away from that zone.
//  3. AVOID: the straight line to the target is blocked; steer to a
//     tangent point on an orbit around the blocking zone.
//  4. INTERCEPT: fly to where the target will be after the horizon.
//
// The engine keeps no state between calls. A *Planner holds only its
// immutable Params and may be shared between goroutines.
package planner

import (
	"fmt"
	"math"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/predict"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

// Input is everything one planning cycle needs.
type Input struct {
	Vehicle predict.State
	Target  predict.State
	Zones   zones.Set
}

// Candidate is one tangent point considered by the AVOID tier.
type Candidate struct {
	Point geom.Point
	// Bearing from the zone centre, normalised to [-pi, pi].
	Bearing        float64
	Safe           bool
	TargetDistance float64 // to the predicted target
}

// Result is the outcome of one planning cycle.
type Result struct {
	Mode     Mode
	Waypoint geom.Point
	Reason   string

	// Zone is the index of the zone that triggered the decision, or
	// zones.NoExclusion for INTERCEPT.
	Zone int
	// Candidates holds both tangent points for AVOID, nil otherwise.
	Candidates []Candidate
	// PredictedTarget is the extrapolated target position. ESCAPE and
	// REPULSION fall back to the current target position when the
	// extrapolation is not finite.
	PredictedTarget geom.Point
}

// Planner evaluates planning inputs with a fixed set of Params.
type Planner struct {
	params Params
}

// New returns a Planner using p. The params are validated with the same
// rules as the tuning file.
func New(p Params) (*Planner, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Planner{params: p}, nil
}

// Default returns a Planner with DefaultParams.
func Default() *Planner {
	return &Planner{params: DefaultParams()}
}

// Params returns the constants the planner was built with.
func (pl *Planner) Params() Params { return pl.params }

// Plan produces the next waypoint for in.
func (pl *Planner) Plan(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	p := pl.params
	vehicle := in.Vehicle.Position

	// Only AVOID and INTERCEPT steer by the prediction, so only they fail
	// when it overflows.
	predicted := predict.Predict(in.Target, p.TargetHorizon)
	needPrediction := func() error {
		if !predicted.IsFinite() {
			return fmt.Errorf("predicted target %v: %w", predicted, ErrComputation)
		}
		return nil
	}

	var res Result
	if i, ok := in.Zones.FirstContaining(vehicle); ok {
		res = pl.escape(in, i)
	} else if i, ok := pl.repulsionZone(in); ok {
		res = pl.repel(in, i)
	} else if i, ok := in.Zones.FirstBlocking(vehicle, in.Target.Position, p.BlockingMargin); ok {
		if err := needPrediction(); err != nil {
			return Result{}, err
		}
		res = pl.avoid(in, i, predicted)
	} else {
		if err := needPrediction(); err != nil {
			return Result{}, err
		}
		res = Result{
			Mode:     ModeIntercept,
			Waypoint: predicted,
			Reason:   fmt.Sprintf("path clear, intercepting target predicted %.1fs ahead at %v", p.TargetHorizon, predicted),
			Zone:     zones.NoExclusion,
		}
	}
	res.PredictedTarget = predicted
	if !predicted.IsFinite() {
		res.PredictedTarget = in.Target.Position
	}

	if !res.Waypoint.IsFinite() {
		return Result{}, fmt.Errorf("%s waypoint %v: %w", res.Mode, res.Waypoint, ErrComputation)
	}
	for _, c := range res.Candidates {
		if !c.Point.IsFinite() || math.IsNaN(c.TargetDistance) {
			return Result{}, fmt.Errorf("tangent candidate %v: %w", c.Point, ErrComputation)
		}
	}
	return res, nil
}

func validate(in Input) error {
	if !in.Vehicle.IsFinite() {
		return fmt.Errorf("vehicle state %+v is not finite: %w", in.Vehicle, ErrInvalidInput)
	}
	if !in.Target.IsFinite() {
		return fmt.Errorf("target state %+v is not finite: %w", in.Target, ErrInvalidInput)
	}
	if err := in.Zones.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)
	}
	return nil
}

func (pl *Planner) escape(in Input, i int) Result {
	z := in.Zones[i]
	vehicle := in.Vehicle.Position
	dir, ok := geom.Outward(z, vehicle)
	reason := fmt.Sprintf("inside zone %d (%v), escaping %.0f m outward", i, z, pl.params.EscapeDistance)
	if !ok {
		reason = fmt.Sprintf("at centre of zone %d (%v), escaping %.0f m along fallback direction (%g, %g)",
			i, z, pl.params.EscapeDistance, dir.X, dir.Y)
	}
	return Result{
		Mode:     ModeEscape,
		Waypoint: vehicle.Offset(dir, pl.params.EscapeDistance),
		Reason:   reason,
		Zone:     i,
	}
}

// repulsionZone returns the first zone clipped by the vehicle's lookahead
// segment. It only applies above the minimum speed.
func (pl *Planner) repulsionZone(in Input) (int, bool) {
	p := pl.params
	if in.Vehicle.Speed() <= p.RepulsionMinSpeed {
		return zones.NoExclusion, false
	}
	lookahead := predict.Predict(in.Vehicle, p.RepulsionLookahead)
	return in.Zones.FirstBlocking(in.Vehicle.Position, lookahead, p.RepulsionMargin)
}

func (pl *Planner) repel(in Input, i int) Result {
	z := in.Zones[i]
	vehicle := in.Vehicle.Position
	dir, _ := geom.Outward(z, vehicle)
	return Result{
		Mode:     ModeRepulsion,
		Waypoint: vehicle.Offset(dir, pl.params.RepulsionDistance),
		Reason: fmt.Sprintf("heading into zone %d (%v) at %.1f m/s within %.1fs, repelling %.0f m",
			i, z, in.Vehicle.Speed(), pl.params.RepulsionLookahead, pl.params.RepulsionDistance),
		Zone: i,
	}
}

func (pl *Planner) avoid(in Input, i int, predicted geom.Point) Result {
	p := pl.params
	z := in.Zones[i]
	vehicle := in.Vehicle.Position

	theta := geom.Bearing(z.Center, vehicle)
	orbit := z.Radius * p.OrbitMultiplier

	cands := make([]Candidate, 2)
	for k, angle := range []float64{theta + p.OrbitOffset, theta - p.OrbitOffset} {
		t := geom.Polar(z.Center, orbit, angle)
		cands[k] = Candidate{
			Point:   t,
			Bearing: geom.NormalizeAngle(angle),
			Safe: in.Zones.PointClear(t, i, p.SafetyMultiplier) &&
				in.Zones.PathClear(vehicle, t, i, p.CandidatePathMargin),
			TargetDistance: geom.Distance(t, predicted),
		}
	}
	t1, t2 := cands[0], cands[1]

	var pick int
	var why string
	switch {
	case t1.Safe && !t2.Safe:
		pick, why = 0, "only safe tangent"
	case t2.Safe && !t1.Safe:
		pick, why = 1, "only safe tangent"
	default:
		why = "closer to predicted target"
		if !t1.Safe {
			why = "no safe tangent, closer to predicted target"
		}
		if t1.TargetDistance < t2.TargetDistance {
			pick = 0
		} else {
			pick = 1
		}
	}
	chosen := cands[pick]

	return Result{
		Mode:     ModeAvoid,
		Waypoint: chosen.Point,
		Reason: fmt.Sprintf("path to target blocked by zone %d (%v), orbiting via T%d at bearing %.0f deg (%s)",
			i, z, pick+1, chosen.Bearing*180/math.Pi, why),
		Zone:       i,
		Candidates: cands,
	}
}
