// Package sim flies a simulated vehicle against a simulated target using
// the planner in a closed loop. The vehicle flies at a constant cruise
// speed toward the current waypoint; the target moves in a straight line.
// The run ends when the vehicle comes within the capture radius of the
// target or the step limit is reached.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/predict"
	"github.com/Tahakcygt/HSS-ka/internal/viz"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

// Scenario defaults, applied to zero-valued fields.
const (
	DefaultCruiseSpeed   = 15.0 // m/s
	DefaultStep          = 0.1  // seconds
	DefaultCaptureRadius = 5.0  // metres
	DefaultMaxSteps      = 6000
)

// maxScenarioBytes bounds scenario files.
const maxScenarioBytes = 1 << 20

// ZoneSpec is one zone in a scenario file.
type ZoneSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	R float64 `yaml:"r"`
}

// Scenario describes one chase. Positions are local metres.
type Scenario struct {
	Name          string     `yaml:"name"`
	VehiclePos    [2]float64 `yaml:"vehicle_pos"`
	TargetPos     [2]float64 `yaml:"target_pos"`
	TargetVel     [2]float64 `yaml:"target_vel"`
	Zones         []ZoneSpec `yaml:"zones"`
	CruiseSpeed   float64    `yaml:"cruise_speed"`
	Step          float64    `yaml:"step"`
	CaptureRadius float64    `yaml:"capture_radius"`
	MaxSteps      int        `yaml:"max_steps"`

	// ReplanInterval forces a new decision after this many seconds even if
	// the waypoint has not been reached. Zero replans only on arrival.
	ReplanInterval float64 `yaml:"replan_interval"`
}

// LoadScenario reads a YAML (or JSON) scenario file and applies defaults.
func LoadScenario(path string) (Scenario, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return Scenario{}, fmt.Errorf("scenario file must have .yaml, .yml or .json extension, got %q", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	if info.Size() > maxScenarioBytes {
		return Scenario{}, fmt.Errorf("scenario file too large: %d bytes (max %d)", info.Size(), maxScenarioBytes)
	}
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer f.Close()

	var sc Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), ext)
	}
	sc = sc.WithDefaults()
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// WithDefaults returns sc with zero-valued settings replaced by defaults.
func (sc Scenario) WithDefaults() Scenario {
	if sc.CruiseSpeed == 0 {
		sc.CruiseSpeed = DefaultCruiseSpeed
	}
	if sc.Step == 0 {
		sc.Step = DefaultStep
	}
	if sc.CaptureRadius == 0 {
		sc.CaptureRadius = DefaultCaptureRadius
	}
	if sc.MaxSteps == 0 {
		sc.MaxSteps = DefaultMaxSteps
	}
	return sc
}

// Validate checks the run settings. Zone geometry is checked by the
// planner on every decision.
func (sc Scenario) Validate() error {
	var errs []error
	if !(sc.CruiseSpeed > 0) || math.IsInf(sc.CruiseSpeed, 0) {
		errs = append(errs, fmt.Errorf("cruise_speed must be positive, got %v", sc.CruiseSpeed))
	}
	if !(sc.Step > 0) || math.IsInf(sc.Step, 0) {
		errs = append(errs, fmt.Errorf("step must be positive, got %v", sc.Step))
	}
	if !(sc.CaptureRadius > 0) || math.IsInf(sc.CaptureRadius, 0) {
		errs = append(errs, fmt.Errorf("capture_radius must be positive, got %v", sc.CaptureRadius))
	}
	if sc.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("max_steps must be at least 1, got %d", sc.MaxSteps))
	}
	if !(sc.ReplanInterval >= 0) {
		errs = append(errs, fmt.Errorf("replan_interval must not be negative, got %v", sc.ReplanInterval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}

// ZoneSet converts the scenario zones.
func (sc Scenario) ZoneSet() zones.Set {
	set := make(zones.Set, len(sc.Zones))
	for i, z := range sc.Zones {
		set[i] = geom.Z(z.X, z.Y, z.R)
	}
	return set
}

// Sample is the world state after one step.
type Sample struct {
	Time    float64
	Vehicle geom.Point
	Target  geom.Point
	Mode    planner.Mode
}

// Decision is one planner call made during the run.
type Decision struct {
	Time   float64
	Input  planner.Input
	Result planner.Result
}

// Run is the outcome of a simulation.
type Run struct {
	Scenario  Scenario
	Samples   []Sample
	Decisions []Decision
	Captured  bool
	Duration  float64

	// MinClearance is the smallest distance between the vehicle and any
	// zone boundary, negative when the vehicle was inside a zone.
	MinClearance float64
}

// ModeCounts returns how many decisions each mode produced.
func (r Run) ModeCounts() map[planner.Mode]int {
	counts := make(map[planner.Mode]int, len(planner.Modes))
	for _, m := range planner.Modes {
		counts[m] = 0
	}
	for _, d := range r.Decisions {
		counts[d.Result.Mode]++
	}
	return counts
}

// Scene returns the final frame with both trails drawn.
func (r Run) Scene() viz.Scene {
	if len(r.Decisions) == 0 {
		return viz.Scene{Title: r.Scenario.Name, Zones: r.Scenario.ZoneSet()}
	}
	last := r.Decisions[len(r.Decisions)-1]
	scene := viz.FromPlan(last.Input, last.Result)

	outcome := "step limit"
	if r.Captured {
		outcome = "captured"
	}
	scene.Title = fmt.Sprintf("%s: %s after %.1fs", r.Scenario.Name, outcome, r.Duration)
	scene.VehicleTrail = make([]geom.Point, 0, len(r.Samples))
	scene.TargetTrail = make([]geom.Point, 0, len(r.Samples))
	for _, s := range r.Samples {
		scene.VehicleTrail = append(scene.VehicleTrail, s.Vehicle)
		scene.TargetTrail = append(scene.TargetTrail, s.Target)
	}
	if n := len(r.Samples); n > 0 {
		scene.Vehicle = r.Samples[n-1].Vehicle
		scene.Target = r.Samples[n-1].Target
	}
	return scene
}

func clearance(set zones.Set, p geom.Point) float64 {
	c := math.Inf(1)
	for _, z := range set {
		c = math.Min(c, geom.Distance(p, z.Center)-z.Radius)
	}
	return c
}

// Simulate runs sc against pl. It stops early if ctx is cancelled or the
// planner rejects an input.
func Simulate(ctx context.Context, pl *planner.Planner, sc Scenario) (Run, error) {
	sc = sc.WithDefaults()
	if err := sc.Validate(); err != nil {
		return Run{}, err
	}
	if pl == nil {
		pl = planner.Default()
	}

	set := sc.ZoneSet()
	vehicle := predict.At(sc.VehiclePos[0], sc.VehiclePos[1])
	target := predict.At(sc.TargetPos[0], sc.TargetPos[1]).Moving(sc.TargetVel[0], sc.TargetVel[1])
	leg := sc.CruiseSpeed * sc.Step

	run := Run{Scenario: sc, MinClearance: clearance(set, vehicle.Position)}
	replanEvery := 0
	if sc.ReplanInterval > 0 {
		replanEvery = max(1, int(math.Ceil(sc.ReplanInterval/sc.Step-1e-9)))
	}

	var (
		current   planner.Result
		haveWP    bool
		sincePlan int
	)

	for i := 0; i < sc.MaxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		t := float64(i) * sc.Step

		if geom.Distance(vehicle.Position, target.Position) <= sc.CaptureRadius {
			run.Captured = true
			run.Duration = t
			return run, nil
		}

		if !haveWP || (replanEvery > 0 && sincePlan >= replanEvery) {
			in := planner.Input{Vehicle: vehicle, Target: target, Zones: set}
			res, err := pl.Plan(in)
			if err != nil {
				return run, fmt.Errorf("step %d: %w", i, err)
			}
			run.Decisions = append(run.Decisions, Decision{Time: t, Input: in, Result: res})
			current, haveWP, sincePlan = res, true, 0
		}

		// Fly toward the waypoint, stopping on it.
		toWP := geom.Sub(current.Waypoint, vehicle.Position)
		dist := toWP.Norm()
		if dir, ok := toWP.Unit(); ok && dist > leg {
			vehicle.Position = vehicle.Position.Offset(dir, leg)
			vehicle.Velocity = geom.Vec(dir.X*sc.CruiseSpeed, dir.Y*sc.CruiseSpeed)
		} else {
			vehicle.Position = current.Waypoint
			haveWP = false
		}
		target.Position = predict.Predict(target, sc.Step)
		sincePlan++

		run.MinClearance = math.Min(run.MinClearance, clearance(set, vehicle.Position))
		run.Samples = append(run.Samples, Sample{
			Time:    t + sc.Step,
			Vehicle: vehicle.Position,
			Target:  target.Position,
			Mode:    current.Mode,
		})
	}

	run.Duration = float64(sc.MaxSteps) * sc.Step
	run.Captured = geom.Distance(vehicle.Position, target.Position) <= sc.CaptureRadius
	return run, nil
}
