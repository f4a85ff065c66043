package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/api"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/serialmux"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":8080", *listen)
	assert.Equal(t, serialmux.DefaultBaudRate, *baud)
	assert.Equal(t, "8N1", *framing)
	assert.Equal(t, "hss_journal.db", *dbPath)
	assert.False(t, *devMode)
	assert.False(t, *disableSerial)
	assert.Empty(t, *configPath)
}

func TestLoadPlanner(t *testing.T) {
	pl, err := loadPlanner("")
	require.NoError(t, err)
	assert.Equal(t, planner.DefaultParams(), pl.Params())

	dir := t.TempDir()
	good := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(good, []byte("escape_distance: 120\norbit_multiplier: 3\n"), 0o644))
	pl, err = loadPlanner(good)
	require.NoError(t, err)
	assert.Equal(t, 120.0, pl.Params().EscapeDistance)
	assert.Equal(t, 3.0, pl.Params().OrbitMultiplier)
	assert.Equal(t, planner.DefaultParams().SafetyMultiplier, pl.Params().SafetyMultiplier)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"orbit_multiplier": 0.5}`), 0o644))
	_, err = loadPlanner(bad)
	assert.Error(t, err)

	_, err = loadPlanner(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestReadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`# replayed in dev mode
{"drone_pos":[0,0],"target_pos":[100,0]}

{"drone_pos":[0,0],"target_pos":[200,0],"red_zones":[{"x":100,"y":0,"r":20}]}
`), 0o644))
	lines, err := readFixtures(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, serialmux.EventTypeLocalRequest, serialmux.ClassifyPayload(string(lines[1])))

	empty := filepath.Join(t.TempDir(), "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = readFixtures(empty)
	assert.Error(t, err)

	_, err = readFixtures(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestRootMux(t *testing.T) {
	metrics := monitoring.NewMetrics()
	mux := newRootMux(api.NewServer(api.Config{}), metrics)

	for path, want := range map[string]int{
		"/healthz":       http.StatusOK,
		"/metrics":       http.StatusOK,
		"/api/config":    http.StatusOK,
		"/api/decisions": http.StatusNotFound,
		"/api/scene.png": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
