package db

import (
	"bytes"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/predict"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(t.Logf) })

	db, err := NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDecision(t *testing.T, mode planner.Mode, at time.Time) Decision {
	t.Helper()
	in := planner.Input{
		Vehicle: predict.At(1, 2),
		Target:  predict.At(200, 0),
		Zones:   zones.Set{geom.Z(100, 0, 20)},
	}
	res := planner.Result{
		Mode:            mode,
		Waypoint:        geom.Pt(73, 42),
		Reason:          "test",
		Zone:            0,
		PredictedTarget: geom.Pt(200, 0),
	}
	d := NewDecision("test", in, res, []byte(`{"drone_pos":[1,2]}`))
	d.CreatedAt = at
	return d
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestRecordAndRecentDecisions(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := sampleDecision(t, planner.ModeAvoid, base)
	second := sampleDecision(t, planner.ModeIntercept, base.Add(time.Second))
	require.NoError(t, db.RecordDecision(first))
	require.NoError(t, db.RecordDecision(second))

	got, err := db.RecentDecisions(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first, got[1])

	got, err = db.RecentDecisions(1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordDecision_FillsIDAndTime(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordDecision(Decision{Source: "serial", Mode: "ESCAPE"}))

	got, err := db.RecentDecisions(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestRecordDecision_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	d := sampleDecision(t, planner.ModeAvoid, time.Now())
	require.NoError(t, db.RecordDecision(d))
	assert.Error(t, db.RecordDecision(d))
}

func TestModeCounts(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	for _, m := range []planner.Mode{planner.ModeAvoid, planner.ModeAvoid, planner.ModeEscape} {
		require.NoError(t, db.RecordDecision(sampleDecision(t, m, now)))
	}

	counts, err := db.ModeCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"ESCAPE":    1,
		"REPULSION": 0,
		"AVOID":     2,
		"INTERCEPT": 0,
	}, counts)
}

func TestJournalPersistsAcrossReopen(t *testing.T) {
	monitoring.SetLogger(nil)
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	d := sampleDecision(t, planner.ModeRepulsion, time.Now().UTC())
	require.NoError(t, db.RecordDecision(d))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.RecentDecisions(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].ID)
	assert.Equal(t, "REPULSION", got[0].Mode)
}

func TestMigrations(t *testing.T) {
	monitoring.SetLogger(nil)
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations, err := getMigrationsFS()
	require.NoError(t, err)
	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	v, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(migrations))
	v, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	// Idempotent.
	require.NoError(t, db.MigrateUp(migrations))

	require.NoError(t, db.MigrateDown(migrations))
	v, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, db.MigrateTo(migrations, 2))
	require.NoError(t, db.MigrateForce(migrations, 2))
}

func TestRunMigrateCommand(t *testing.T) {
	monitoring.SetLogger(nil)
	path := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out))
	assert.Contains(t, out.String(), "dirty: false")

	out.Reset()
	assert.Error(t, RunMigrateCommand([]string{"sideways"}, path, &out))
	assert.Contains(t, out.String(), "Usage:")

	assert.Error(t, RunMigrateCommand(nil, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"version", "x"}, path, &out))
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	// Access control may answer 403, but the routes must be registered.
	for _, path := range []string{"/debug/tailsql/", "/debug/backup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}
