// Package wire is the JSON codec for planning requests and responses.
//
// Two request formats are accepted. The local format carries positions in
// metres of the home frame:
//
//	{"drone_pos": [0, 0], "drone_vel": [0, 0],
//	 "target_pos": [200, 0], "target_vel": [0, 0],
//	 "red_zones": [{"x": 100, "y": 0, "r": 20}]}
//
// The geodetic format carries the home location, the target and the zones in
// latitude/longitude; the vehicle stays in local metres:
//
//	{"home": {"lat": 39.9, "lon": 32.8, "alt": 30},
//	 "drone_pos": [0, 0],
//	 "target": {"lat": 39.901, "lon": 32.8},
//	 "hss_koordinatlari": [{"enlem": 39.9005, "boylam": 32.8, "yaricap": 50}]}
//
// Velocities default to zero and zone lists to empty. Unknown fields are
// rejected.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Tahakcygt/HSS-ka/internal/geo"
	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/predict"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

// Pair is an [x, y] array.
type Pair [2]float64

func (p Pair) point() geom.Point   { return geom.Pt(p[0], p[1]) }
func (p Pair) vector() geom.Vector { return geom.Vec(p[0], p[1]) }

// UnmarshalJSON requires exactly two numbers. A null leaves p unchanged, so
// an explicit null velocity defaults to zero like an absent one.
func (p *Pair) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected [x, y], got %d values", len(raw))
	}
	p[0], p[1] = raw[0], raw[1]
	return nil
}

// PairOf returns p as a Pair.
func PairOf(p geom.Point) Pair { return Pair{p.X, p.Y} }

// Zone is a zone in the local format.
type Zone struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	R *float64 `json:"r"`
}

// Request is a planning request in the local format.
type Request struct {
	DronePos  *Pair  `json:"drone_pos"`
	DroneVel  Pair   `json:"drone_vel"`
	TargetPos *Pair  `json:"target_pos"`
	TargetVel Pair   `json:"target_vel"`
	RedZones  []Zone `json:"red_zones"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// GeoZone is a zone in the geodetic format. The radius is in metres.
type GeoZone struct {
	Enlem   *float64 `json:"enlem"`
	Boylam  *float64 `json:"boylam"`
	Yaricap *float64 `json:"yaricap"`
}

// GeoRequest is a planning request in the geodetic format.
type GeoRequest struct {
	Home      *geo.Location `json:"home"`
	DronePos  *Pair         `json:"drone_pos"`
	DroneVel  Pair          `json:"drone_vel"`
	Target    *GeoPoint     `json:"target"`
	TargetVel Pair          `json:"target_vel"`
	Zones     []GeoZone     `json:"hss_koordinatlari"`
}

// Response is the answer to either request format.
type Response struct {
	Mode            planner.Mode  `json:"mode"`
	Waypoint        Pair          `json:"waypoint"`
	Reason          string        `json:"reason"`
	Zone            int           `json:"zone"`
	PredictedTarget Pair          `json:"predicted_target"`
	WaypointGlobal  *geo.Location `json:"waypoint_global,omitempty"`
}

// ErrorResponse is the answer to a request that could not be planned.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewResponse builds the wire response for a planner result.
func NewResponse(res planner.Result) Response {
	return Response{
		Mode:            res.Mode,
		Waypoint:        PairOf(res.Waypoint),
		Reason:          res.Reason,
		Zone:            res.Zone,
		PredictedTarget: PairOf(res.PredictedTarget),
	}
}

// NewErrorResponse builds the wire response for a failed request.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Kind: planner.ErrorKind(err)}
}

// decodeStrict decodes exactly one JSON value from r into v.
func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request: %w", planner.ErrInvalidInput)
		}
		return fmt.Errorf("decode request: %v: %w", err, planner.ErrInvalidInput)
	}
	if dec.More() {
		return fmt.Errorf("trailing data after request: %w", planner.ErrInvalidInput)
	}
	return nil
}

// DecodeRequest reads a local-format request.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	if err := decodeStrict(r, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// DecodeGeoRequest reads a geodetic-format request.
func DecodeGeoRequest(r io.Reader) (GeoRequest, error) {
	var req GeoRequest
	if err := decodeStrict(r, &req); err != nil {
		return GeoRequest{}, err
	}
	return req, nil
}

// Input converts the request to a planner input. Missing required fields are
// reported as planner.ErrInvalidInput.
func (req Request) Input() (planner.Input, error) {
	if req.DronePos == nil {
		return planner.Input{}, missing("drone_pos")
	}
	if req.TargetPos == nil {
		return planner.Input{}, missing("target_pos")
	}
	set := make(zones.Set, 0, len(req.RedZones))
	for i, z := range req.RedZones {
		if z.X == nil || z.Y == nil || z.R == nil {
			return planner.Input{}, missing(fmt.Sprintf("red_zones[%d]: x, y and r", i))
		}
		set = append(set, geom.Z(*z.X, *z.Y, *z.R))
	}
	return planner.Input{
		Vehicle: predict.State{Position: req.DronePos.point(), Velocity: req.DroneVel.vector()},
		Target:  predict.State{Position: req.TargetPos.point(), Velocity: req.TargetVel.vector()},
		Zones:   set,
	}, nil
}

// Input converts the request to a planner input in the local frame of its
// home location. It also returns that home for converting the waypoint back.
func (req GeoRequest) Input() (planner.Input, geo.Location, error) {
	if req.Home == nil {
		return planner.Input{}, geo.Location{}, geo.ErrNoHome
	}
	home := *req.Home
	if err := home.Validate(); err != nil {
		return planner.Input{}, geo.Location{}, err
	}
	if req.DronePos == nil {
		return planner.Input{}, home, missing("drone_pos")
	}
	if req.Target == nil || req.Target.Lat == nil || req.Target.Lon == nil {
		return planner.Input{}, home, missing("target.lat and target.lon")
	}
	set := make(zones.Set, 0, len(req.Zones))
	for i, z := range req.Zones {
		if z.Enlem == nil || z.Boylam == nil || z.Yaricap == nil {
			return planner.Input{}, home, missing(fmt.Sprintf("hss_koordinatlari[%d]: enlem, boylam and yaricap", i))
		}
		set = append(set, geo.ZoneToLocal(home, *z.Enlem, *z.Boylam, *z.Yaricap))
	}
	return planner.Input{
		Vehicle: predict.State{Position: req.DronePos.point(), Velocity: req.DroneVel.vector()},
		Target: predict.State{
			Position: geo.ToLocal(home, *req.Target.Lat, *req.Target.Lon),
			Velocity: req.TargetVel.vector(),
		},
		Zones: set,
	}, home, nil
}

func missing(field string) error {
	return fmt.Errorf("missing %s: %w", field, planner.ErrInvalidInput)
}

// Format identifies which request format a payload uses.
type Format int

const (
	FormatUnknown Format = iota
	FormatLocal
	FormatGeo
)

func (f Format) String() string {
	switch f {
	case FormatLocal:
		return "local"
	case FormatGeo:
		return "geo"
	default:
		return "unknown"
	}
}

// Classify inspects the top-level keys of a JSON object to decide its
// format. It does not validate the payload.
func Classify(payload []byte) Format {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return FormatUnknown
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(payload, &keys); err != nil {
		return FormatUnknown
	}
	_, hasHome := keys["home"]
	_, hasGeoZones := keys["hss_koordinatlari"]
	_, hasGeoTarget := keys["target"]
	if hasHome || hasGeoZones || hasGeoTarget {
		return FormatGeo
	}
	_, hasDrone := keys["drone_pos"]
	_, hasTarget := keys["target_pos"]
	if hasDrone || hasTarget {
		return FormatLocal
	}
	return FormatUnknown
}
