package planner

import "errors"

var (
	// ErrInvalidInput is returned for non-finite coordinates or velocities
	// and for zones with a non-positive or non-finite radius.
	ErrInvalidInput = errors.New("invalid input")
	// ErrComputation is returned when the geometry yields a non-finite
	// waypoint or candidate.
	ErrComputation = errors.New("computation error")
	// ErrPreconditionUnmet is returned by outer layers when something the
	// planner needs is missing, such as the home location for a geodetic
	// request.
	ErrPreconditionUnmet = errors.New("precondition unmet")
)

// Error kind labels used on the wire and in metrics.
const (
	KindInvalidInput      = "invalid_input"
	KindComputation       = "computation"
	KindPreconditionUnmet = "precondition_unmet"
	KindInternal          = "internal"
)

// ErrorKind classifies err by the sentinel it wraps.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrComputation):
		return KindComputation
	case errors.Is(err, ErrPreconditionUnmet):
		return KindPreconditionUnmet
	default:
		return KindInternal
	}
}
