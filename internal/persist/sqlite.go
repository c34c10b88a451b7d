package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteEngine stores items in a single-table SQLite database.
type SQLiteEngine struct {
	db     *sql.DB
	dbPath string
	driver string
}

// OpenSQLite creates or opens the database at path. driver is "sqlite3"
// (cgo, mattn/go-sqlite3) or "sqlite" (pure Go, modernc.org/sqlite).
func OpenSQLite(path, driver string) (*SQLiteEngine, error) {
	var dsn string
	switch driver {
	case "sqlite3":
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	case "sqlite":
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	default:
		return nil, fmt.Errorf("unsupported sqlite driver: %s", driver)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	e := &SQLiteEngine{db: db, dbPath: path, driver: driver}
	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return e, nil
}

func (e *SQLiteEngine) initSchema() error {
	_, err := e.db.Exec(`
	CREATE TABLE IF NOT EXISTS persisted_state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// Path returns the database file path.
func (e *SQLiteEngine) Path() string { return e.dbPath }

// Driver returns the database/sql driver name in use.
func (e *SQLiteEngine) Driver() string { return e.driver }

func (e *SQLiteEngine) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := e.db.QueryRowContext(ctx, `SELECT value FROM persisted_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (e *SQLiteEngine) SetItem(ctx context.Context, key string, value []byte) error {
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO persisted_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (e *SQLiteEngine) RemoveItem(ctx context.Context, key string) error {
	if _, err := e.db.ExecContext(ctx, `DELETE FROM persisted_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}
