package telemetry

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresSink persists runs/spans to Postgres via pgx, for deployments
// that want durable telemetry rather than (or alongside) structured logs.
// Grounded on the teacher's trace.Store open/migrate/close lifecycle.
type PostgresSink struct {
	db *sql.DB
}

// OpenPostgresSink connects to connStr and applies any pending migrations.
func OpenPostgresSink(connStr string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: ping: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: migrate: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	for i := current + 1; i < len(entries); i++ {
		data, err := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if err != nil {
			return fmt.Errorf("read migration %d: %w", i, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); err != nil {
			return fmt.Errorf("migration %d record: %w", i, err)
		}
	}
	return nil
}

func (p *PostgresSink) StartRun(runID string) {
	_, _ = p.db.Exec(`INSERT INTO runs (id, started_at) VALUES ($1, $2)`, runID, time.Now().UTC())
}

func (p *PostgresSink) EndRun(runID string) {
	_, _ = p.db.Exec(`UPDATE runs SET ended_at = $2 WHERE id = $1`, runID, time.Now().UTC())
}

func (p *PostgresSink) RecordSpan(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, _ = p.db.Exec(
		`INSERT INTO spans (id, run_id, stage, component, duration_ms, outcome, recorded_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), ev.RunID, ev.Stage, ev.Component, ev.DurationMs, ev.Outcome, ev.Timestamp.UTC(),
	)
}

func (p *PostgresSink) Close() {
	_ = p.db.Close()
}
