package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()
	m.ObserveDecision("AVOID", "http", 3, time.Millisecond)
	m.ObserveDecision("AVOID", "http", 1, time.Millisecond)
	m.ObserveDecision("ESCAPE", "serial", 2, time.Millisecond)
	m.ObserveError("invalid_input", "serial", time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("AVOID", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("ESCAPE", "serial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("invalid_input", "serial")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Zones))
}

func TestMetrics_IndependentInstances(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.ObserveDecision("INTERCEPT", "http", 0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DecisionsTotal.WithLabelValues("INTERCEPT", "http")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveDecision("REPULSION", "http", 1, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hss_decisions_total{mode="REPULSION",source="http"} 1`)
	assert.Contains(t, string(body), "hss_plan_duration_seconds_bucket")
}

func TestMetrics_WatchSerialDrops(t *testing.T) {
	m := NewMetrics()
	var dropped int64 = 3
	m.WatchSerialDrops(func() int64 { return dropped })

	n, err := testutil.GatherAndCount(m.gatherer, "hss_serial_dropped_lines_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dropped = 7
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "hss_serial_dropped_lines_total 7")
}
