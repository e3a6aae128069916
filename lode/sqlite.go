package lode

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database file created inside the telemetry directory.
const SQLiteFileName = "telemetry.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS telemetry_records (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT NOT NULL,
	record_kind   TEXT NOT NULL,
	day           TEXT NOT NULL,
	invocation_id TEXT NOT NULL,
	program       TEXT NOT NULL,
	body          TEXT NOT NULL
);
`

// SQLiteStore keeps every record as a JSON row in one table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) dir/telemetry.db.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	path := filepath.Join(dir, SQLiteFileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapInitError(fmt.Errorf("creating telemetry directory: %w", err), path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("opening database: %w", err), path)
	}

	// Concurrent proxied builds write to the same file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, WrapInitError(fmt.Errorf("enabling WAL mode: %w", err), path)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, WrapInitError(fmt.Errorf("setting busy timeout: %w", err), path)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, WrapInitError(fmt.Errorf("creating schema: %w", err), path)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO telemetry_records (timestamp, record_kind, day, invocation_id, program, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.Timestamp, record.RecordKind, record.Day, record.InvocationID, record.Program, string(body),
	)
	return WrapWriteError(err, s.path)
}

// Records implements Store.
//
// Rows come back in insertion order and are then sorted by parsed time:
// RFC 3339 strings with trimmed fractions do not sort lexically.
func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM telemetry_records ORDER BY id`)
	if err != nil {
		return nil, WrapReadError(err, s.path)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, WrapReadError(err, s.path)
		}
		r, err := recordFromAny(body)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapReadError(err, s.path)
	}
	sortRecords(records)
	return records, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Verify SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
