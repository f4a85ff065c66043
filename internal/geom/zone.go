package geom

import (
	"fmt"
	"math"
)

// Zone is a circular no-go region.
type Zone struct {
	Center Point
	Radius float64 // metres, > 0
}

// Z is shorthand for a zone centred on (x, y) with radius r.
func Z(x, y, r float64) Zone { return Zone{Center: Pt(x, y), Radius: r} }

// Validate checks that the zone is usable for planning.
func (z Zone) Validate() error {
	if !z.Center.IsFinite() {
		return fmt.Errorf("zone center %v is not finite", z.Center)
	}
	if math.IsNaN(z.Radius) || math.IsInf(z.Radius, 0) || z.Radius <= 0 {
		return fmt.Errorf("zone radius must be > 0, got %v", z.Radius)
	}
	return nil
}

func (z Zone) String() string {
	return fmt.Sprintf("center %v r=%.1f", z.Center, z.Radius)
}

// Inside reports whether p lies strictly within z. A point exactly on the
// boundary is outside.
func Inside(p Point, z Zone) bool {
	return Distance(p, z.Center) < z.Radius
}

// SegmentBlocked reports whether the segment start->end passes closer than
// radius+margin to the zone centre.
//
// A segment that starts inside the zone never counts as blocked; containment
// is handled separately and with higher priority. A zero-length segment never
// blocks.
func SegmentBlocked(start, end Point, z Zone, margin float64) bool {
	if Inside(start, z) {
		return false
	}
	closest, ok := ClosestOnSegment(start, end, z.Center)
	if !ok {
		return false
	}
	return Distance(closest, z.Center) < z.Radius+margin
}

// Outward returns the unit vector from the zone centre through p. When p is
// the centre itself the direction is undefined; FallbackDirection is returned
// with ok=false.
func Outward(z Zone, p Point) (dir Vector, ok bool) {
	return Sub(p, z.Center).Unit()
}
