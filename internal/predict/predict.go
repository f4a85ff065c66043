// Package predict extrapolates moving objects under a constant-velocity
// model.
package predict

import "github.com/Tahakcygt/HSS-ka/internal/geom"

// State is the kinematic state of the vehicle or the target. A zero
// Velocity means stationary.
type State struct {
	Position geom.Point
	Velocity geom.Vector
}

// At is shorthand for a stationary state at (x, y).
func At(x, y float64) State { return State{Position: geom.Pt(x, y)} }

// Moving returns a copy of s with velocity (vx, vy).
func (s State) Moving(vx, vy float64) State {
	s.Velocity = geom.Vec(vx, vy)
	return s
}

// Speed returns the magnitude of the velocity.
func (s State) Speed() float64 { return s.Velocity.Norm() }

// IsFinite reports whether position and velocity are finite.
func (s State) IsFinite() bool { return s.Position.IsFinite() && s.Velocity.IsFinite() }

// Predict returns the position after horizon seconds of straight-line motion.
func Predict(s State, horizon float64) geom.Point {
	return s.Position.Offset(s.Velocity, horizon)
}
