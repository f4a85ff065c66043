// Package geo converts between geodetic coordinates and the planner's local
// metre frame around a home point.
//
// The conversion is equirectangular: adequate over the few kilometres a
// mission covers, wrong near the poles, where Validate rejects the home.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
)

// EarthRadius is the WGS-84 equatorial radius in metres.
const EarthRadius = 6378137.0

// maxHomeLatitude keeps cos(lat) well away from zero.
const maxHomeLatitude = 89.0

// ErrNoHome is returned when a geodetic request arrives before the vehicle
// has a home location.
var ErrNoHome = fmt.Errorf("home location not set: %w", planner.ErrPreconditionUnmet)

// Location is a geodetic position with altitude relative to home.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

func (l Location) String() string {
	return fmt.Sprintf("%.7f,%.7f@%.1fm", l.Lat, l.Lon, l.Alt)
}

// Validate checks that l can serve as the origin of the local frame.
func (l Location) Validate() error {
	var errs []error
	if !finite(l.Lat) || math.Abs(l.Lat) > maxHomeLatitude {
		errs = append(errs, fmt.Errorf("latitude %v out of range [-%v, %v]", l.Lat, maxHomeLatitude, maxHomeLatitude))
	}
	if !finite(l.Lon) || math.Abs(l.Lon) > 180 {
		errs = append(errs, fmt.Errorf("longitude %v out of range [-180, 180]", l.Lon))
	}
	if !finite(l.Alt) {
		errs = append(errs, fmt.Errorf("altitude %v is not finite", l.Alt))
	}
	if len(errs) > 0 {
		return fmt.Errorf("home %w: %w", errors.Join(errs...), planner.ErrInvalidInput)
	}
	return nil
}

// ToLocal returns the position of (lat, lon) in metres east (X) and north
// (Y) of home.
func ToLocal(home Location, lat, lon float64) geom.Point {
	dLat := radians(lat - home.Lat)
	dLon := radians(lon - home.Lon)
	return geom.Point{
		X: dLon * EarthRadius * math.Cos(radians(home.Lat)),
		Y: dLat * EarthRadius,
	}
}

// ToGlobal is the inverse of ToLocal. Altitude is carried over from home.
func ToGlobal(home Location, p geom.Point) Location {
	dLat := p.Y / EarthRadius
	dLon := p.X / (EarthRadius * math.Cos(radians(home.Lat)))
	return Location{
		Lat: home.Lat + degrees(dLat),
		Lon: home.Lon + degrees(dLon),
		Alt: home.Alt,
	}
}

// ZoneToLocal converts a zone given by its geodetic centre and radius in
// metres.
func ZoneToLocal(home Location, lat, lon, radius float64) geom.Zone {
	return geom.Zone{Center: ToLocal(home, lat, lon), Radius: radius}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
