package wire

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/geo"
	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/predict"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

func TestDecodeRequest_Defaults(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{"drone_pos": [1, 2], "target_pos": [100, 50]}`))
	require.NoError(t, err)
	in, err := req.Input()
	require.NoError(t, err)

	want := planner.Input{
		Vehicle: predict.At(1, 2),
		Target:  predict.At(100, 50),
		Zones:   zones.Set{},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("Input() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRequest_NullVelocities(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{"drone_pos": [1, 2], "drone_vel": null, "target_pos": [100, 50], "target_vel": null}`))
	require.NoError(t, err)
	in, err := req.Input()
	require.NoError(t, err)
	assert.Equal(t, geom.Vec(0, 0), in.Vehicle.Velocity)
	assert.Equal(t, geom.Vec(0, 0), in.Target.Velocity)

	geoReq, err := DecodeGeoRequest(strings.NewReader(`{"home": {"lat": 39.9, "lon": 32.8}, "drone_pos": [0, 0], "drone_vel": null, "target": {"lat": 39.901, "lon": 32.8}}`))
	require.NoError(t, err)
	geoIn, _, err := geoReq.Input()
	require.NoError(t, err)
	assert.Equal(t, geom.Vec(0, 0), geoIn.Vehicle.Velocity)

	// A null position is still a missing position.
	req, err = DecodeRequest(strings.NewReader(`{"drone_pos": null, "target_pos": [100, 50]}`))
	require.NoError(t, err)
	_, err = req.Input()
	assert.ErrorIs(t, err, planner.ErrInvalidInput)
}

func TestDecodeRequest_Full(t *testing.T) {
	body := `{
		"drone_pos": [0, 0], "drone_vel": [3, 4],
		"target_pos": [200, 0], "target_vel": [-1, 0],
		"red_zones": [{"x": 100, "y": 0, "r": 20}, {"x": 50, "y": 50, "r": 5}]
	}`
	req, err := DecodeRequest(strings.NewReader(body))
	require.NoError(t, err)
	in, err := req.Input()
	require.NoError(t, err)

	assert.Equal(t, geom.Vec(3, 4), in.Vehicle.Velocity)
	assert.Equal(t, geom.Vec(-1, 0), in.Target.Velocity)
	assert.Equal(t, zones.Set{geom.Z(100, 0, 20), geom.Z(50, 50, 5)}, in.Zones)
}

func TestDecodeRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"not json", `drone`},
		{"unknown field", `{"drone_pos": [0, 0], "target_pos": [1, 1], "altitude": 5}`},
		{"short pair", `{"drone_pos": [0], "target_pos": [1, 1]}`},
		{"long pair", `{"drone_pos": [0, 0, 0], "target_pos": [1, 1]}`},
		{"missing drone", `{"target_pos": [1, 1]}`},
		{"missing target", `{"drone_pos": [1, 1]}`},
		{"zone without radius", `{"drone_pos": [0, 0], "target_pos": [1, 1], "red_zones": [{"x": 1, "y": 1}]}`},
		{"trailing data", `{"drone_pos": [0, 0], "target_pos": [1, 1]} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest(strings.NewReader(tt.body))
			if err == nil {
				_, err = req.Input()
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, planner.ErrInvalidInput)
		})
	}
}

func TestGeoRequest_Input(t *testing.T) {
	home := geo.Location{Lat: 39.9, Lon: 32.8, Alt: 40}
	target := geo.ToGlobal(home, geom.Pt(300, 100))
	zone := geo.ToGlobal(home, geom.Pt(150, 50))

	body, err := json.Marshal(map[string]any{
		"home":       home,
		"drone_pos":  []float64{0, 0},
		"target":     map[string]float64{"lat": target.Lat, "lon": target.Lon},
		"target_vel": []float64{1, 0},
		"hss_koordinatlari": []map[string]float64{
			{"enlem": zone.Lat, "boylam": zone.Lon, "yaricap": 25},
		},
	})
	require.NoError(t, err)

	req, err := DecodeGeoRequest(strings.NewReader(string(body)))
	require.NoError(t, err)
	in, gotHome, err := req.Input()
	require.NoError(t, err)

	assert.Equal(t, home, gotHome)
	assert.InDelta(t, 300, in.Target.Position.X, 1e-6)
	assert.InDelta(t, 100, in.Target.Position.Y, 1e-6)
	assert.Equal(t, geom.Vec(1, 0), in.Target.Velocity)
	require.Len(t, in.Zones, 1)
	assert.InDelta(t, 150, in.Zones[0].Center.X, 1e-6)
	assert.InDelta(t, 50, in.Zones[0].Center.Y, 1e-6)
	assert.Equal(t, 25.0, in.Zones[0].Radius)
}

func TestGeoRequest_MissingHome(t *testing.T) {
	req, err := DecodeGeoRequest(strings.NewReader(`{"drone_pos": [0, 0], "target": {"lat": 1, "lon": 1}}`))
	require.NoError(t, err)
	_, _, err = req.Input()
	assert.ErrorIs(t, err, planner.ErrPreconditionUnmet)
	assert.Equal(t, planner.KindPreconditionUnmet, planner.ErrorKind(err))
}

func TestGeoRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"polar home", `{"home": {"lat": 90, "lon": 0, "alt": 0}, "drone_pos": [0, 0], "target": {"lat": 1, "lon": 1}}`},
		{"missing target lon", `{"home": {"lat": 1, "lon": 1, "alt": 0}, "drone_pos": [0, 0], "target": {"lat": 1}}`},
		{"missing drone", `{"home": {"lat": 1, "lon": 1, "alt": 0}, "target": {"lat": 1, "lon": 1}}`},
		{"zone without yaricap", `{"home": {"lat": 1, "lon": 1, "alt": 0}, "drone_pos": [0, 0], "target": {"lat": 1, "lon": 1}, "hss_koordinatlari": [{"enlem": 1, "boylam": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeGeoRequest(strings.NewReader(tt.body))
			require.NoError(t, err)
			_, _, err = req.Input()
			assert.ErrorIs(t, err, planner.ErrInvalidInput)
		})
	}
}

func TestResponse_JSON(t *testing.T) {
	res := planner.Result{
		Mode:            planner.ModeIntercept,
		Waypoint:        geom.Pt(80, 0),
		Reason:          "path clear",
		Zone:            -1,
		PredictedTarget: geom.Pt(80, 0),
	}
	b, err := json.Marshal(NewResponse(res))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"INTERCEPT","waypoint":[80,0],"reason":"path clear","zone":-1,"predicted_target":[80,0]}`, string(b))

	b, err = json.Marshal(NewErrorResponse(geo.ErrNoHome))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"home location not set: precondition unmet","kind":"precondition_unmet"}`, string(b))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		payload string
		want    Format
	}{
		{`{"drone_pos": [0, 0], "target_pos": [1, 1]}`, FormatLocal},
		{`  {"target_pos": [1, 1]}`, FormatLocal},
		{`{"home": {"lat": 1, "lon": 1}, "drone_pos": [0, 0]}`, FormatGeo},
		{`{"hss_koordinatlari": []}`, FormatGeo},
		{`{"status": "ok"}`, FormatUnknown},
		{`[1, 2]`, FormatUnknown},
		{`MAVLINK garbage`, FormatUnknown},
		{``, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.want.String()+" "+tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify([]byte(tt.payload)))
		})
	}
}
