// Package db is the SQLite decision journal. Every successful planning cycle
// is recorded so that flights can be reviewed and replayed afterwards.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
)

type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the database and applies connection pragmas without touching
// the schema. Used by the migrate subcommand.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	migrations, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to get migrations filesystem: %w", err)
	}
	if err := db.MigrateUp(migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// Decision is one journalled planning cycle.
type Decision struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	Mode       string    `json:"mode"`
	Zone       int       `json:"zone"`
	WaypointX  float64   `json:"waypoint_x"`
	WaypointY  float64   `json:"waypoint_y"`
	PredictedX float64   `json:"predicted_x"`
	PredictedY float64   `json:"predicted_y"`
	Reason     string    `json:"reason"`
	VehicleX   float64   `json:"vehicle_x"`
	VehicleY   float64   `json:"vehicle_y"`
	TargetX    float64   `json:"target_x"`
	TargetY    float64   `json:"target_y"`
	ZoneCount  int       `json:"zone_count"`
	Request    string    `json:"request,omitempty"`
}

func (d *Decision) String() string {
	return fmt.Sprintf("%s %s %s waypoint=(%.1f, %.1f) zone=%d: %s",
		d.CreatedAt.Format(time.RFC3339), d.Source, d.Mode, d.WaypointX, d.WaypointY, d.Zone, d.Reason)
}

// NewDecision builds a journal entry from a planning cycle. request is the
// raw request payload and may be empty.
func NewDecision(source string, in planner.Input, res planner.Result, request []byte) Decision {
	return Decision{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		Mode:       res.Mode.String(),
		Zone:       res.Zone,
		WaypointX:  res.Waypoint.X,
		WaypointY:  res.Waypoint.Y,
		PredictedX: res.PredictedTarget.X,
		PredictedY: res.PredictedTarget.Y,
		Reason:     res.Reason,
		VehicleX:   in.Vehicle.Position.X,
		VehicleY:   in.Vehicle.Position.Y,
		TargetX:    in.Target.Position.X,
		TargetY:    in.Target.Position.Y,
		ZoneCount:  len(in.Zones),
		Request:    string(request),
	}
}

// RecordDecision stores d. An empty ID is filled in.
func (db *DB) RecordDecision(d Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO decisions (
			decision_id, created_unix_ns, source, mode, zone,
			waypoint_x, waypoint_y, predicted_x, predicted_y, reason,
			vehicle_x, vehicle_y, target_x, target_y, zone_count, request_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreatedAt.UnixNano(), d.Source, d.Mode, d.Zone,
		d.WaypointX, d.WaypointY, d.PredictedX, d.PredictedY, d.Reason,
		d.VehicleX, d.VehicleY, d.TargetX, d.TargetY, d.ZoneCount, d.Request,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (db *DB) RecentDecisions(limit int) ([]Decision, error) {
	rows, err := db.Query(
		`SELECT decision_id, created_unix_ns, source, mode, zone,
			waypoint_x, waypoint_y, predicted_x, predicted_y, reason,
			vehicle_x, vehicle_y, target_x, target_y, zone_count, request_json
		FROM decisions ORDER BY created_unix_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		var created int64
		if err := rows.Scan(&d.ID, &created, &d.Source, &d.Mode, &d.Zone,
			&d.WaypointX, &d.WaypointY, &d.PredictedX, &d.PredictedY, &d.Reason,
			&d.VehicleX, &d.VehicleY, &d.TargetX, &d.TargetY, &d.ZoneCount, &d.Request); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(0, created).UTC()
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// ModeCounts returns the number of journalled decisions per mode name.
// Modes never recorded are present with a zero count.
func (db *DB) ModeCounts() (map[string]int, error) {
	counts := make(map[string]int, len(planner.Modes))
	for _, m := range planner.Modes {
		counts[m.String()] = 0
	}

	rows, err := db.Query("SELECT mode, COUNT(*) FROM decisions GROUP BY mode")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, err
		}
		counts[mode] = n
	}
	return counts, rows.Err()
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Decision journal",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the journal now", http.HandlerFunc(db.serveBackup))
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("hss-journal-backup-%d.db", time.Now().Unix()))
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
