package repos

import (
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenDB opens the slot store. sqlite allows one writer at a time, so the
// pool is a single connection and other processes on the same file wait up
// to busyTimeoutMs for the lock instead of failing with SQLITE_BUSY.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, err
	}
	// also keeps :memory: from handing each pooled connection its own empty database
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	log.Printf("[db] slot store ready (%s)", dsn)
	return db, nil
}

const busyTimeoutMs = "5000"

func withBusyTimeout(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(" + busyTimeoutMs + ")"
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA journal_mode = WAL;

-- One row per (browser session, slot). value holds the slot's JSON or sealed bytes.
CREATE TABLE IF NOT EXISTS storage_slots(
  session_id TEXT NOT NULL,
  slot       TEXT NOT NULL,
  value      BLOB NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  PRIMARY KEY (session_id, slot)
);
CREATE INDEX IF NOT EXISTS idx_storage_slots_updated ON storage_slots(updated_at);
`
	_, err := db.Exec(schema)
	return err
}
