package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names as registered with database/sql
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrEntityNotFound is returned by LookupEntity when no row matches.
var ErrEntityNotFound = errors.New("entity not found")

// Opener opens a fresh database handle for a single write.
type Opener func() (*sql.DB, error)

// Store reads entities and financial disclosures through a long-lived
// read-only handle and writes posts through short-lived handles that are
// closed as soon as the write finishes.
type Store struct {
	driver     string
	db         *sql.DB
	openWriter Opener
}

// Open connects to the configured database.
// For sqlite, dsn is a file path and the read handle is opened with mode=ro.
func Open(driver, dsn string) (*Store, error) {
	readDSN, writeDSN, err := splitDSN(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, readDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	opener := func() (*sql.DB, error) {
		w, err := sql.Open(driver, writeDSN)
		if err != nil {
			return nil, err
		}
		w.SetMaxOpenConns(1)
		return w, nil
	}

	return New(driver, db, opener), nil
}

// New wraps an existing read handle and writer factory.
func New(driver string, db *sql.DB, openWriter Opener) *Store {
	return &Store{driver: driver, db: db, openWriter: openWriter}
}

// Close closes the read handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the read handle is usable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func splitDSN(driver, dsn string) (readDSN, writeDSN string, err error) {
	switch driver {
	case DriverSQLite:
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite store requires a database path")
		}
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return "", "", err
		}
		return "file:" + path + "?mode=ro", "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)", nil
	case DriverPostgres:
		if dsn == "" {
			return "", "", fmt.Errorf("postgres store requires a dsn")
		}
		return dsn, dsn, nil
	default:
		return "", "", fmt.Errorf("unknown database driver: %s", driver)
	}
}

// rebind rewrites ? placeholders into $N for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
