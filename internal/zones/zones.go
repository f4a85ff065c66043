// Package zones is the per-call registry of no-go zones.
//
// A Set is ordered: when several zones qualify for a query the first one in
// order wins. Queries that need to ignore one zone take its index rather than
// a filtered copy of the set.
package zones

import (
	"fmt"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
)

// NoExclusion is passed as the exclude index when every zone must be checked.
const NoExclusion = -1

// Set is an ordered collection of zones valid for one planning call.
type Set []geom.Zone

// Validate checks every zone in order and reports the first bad one.
func (s Set) Validate() error {
	for i, z := range s {
		if err := z.Validate(); err != nil {
			return fmt.Errorf("zone %d: %w", i, err)
		}
	}
	return nil
}

// FirstContaining returns the index of the first zone that contains p.
func (s Set) FirstContaining(p geom.Point) (int, bool) {
	for i, z := range s {
		if geom.Inside(p, z) {
			return i, true
		}
	}
	return NoExclusion, false
}

// FirstBlocking returns the index of the first zone that blocks the segment
// start->end with the given margin.
func (s Set) FirstBlocking(start, end geom.Point, margin float64) (int, bool) {
	for i, z := range s {
		if geom.SegmentBlocked(start, end, z, margin) {
			return i, true
		}
	}
	return NoExclusion, false
}

// PointClear reports whether p keeps at least radius*multiplier from the
// centre of every zone other than exclude.
func (s Set) PointClear(p geom.Point, exclude int, multiplier float64) bool {
	for i, z := range s {
		if i == exclude {
			continue
		}
		if geom.Distance(p, z.Center) < z.Radius*multiplier {
			return false
		}
	}
	return true
}

// PathClear reports whether no zone other than exclude blocks start->end
// with the given margin.
func (s Set) PathClear(start, end geom.Point, exclude int, margin float64) bool {
	for i, z := range s {
		if i == exclude {
			continue
		}
		if geom.SegmentBlocked(start, end, z, margin) {
			return false
		}
	}
	return true
}
