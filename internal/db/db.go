// Package db is the SQLite persistence collaborator for screening
// sessions: assessment scores with their audit trail, drop-jump trials and
// opaque recordings. The schema is managed by embedded migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/session"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ErrNotFound is returned for unknown ids. It matches session.ErrNotFound.
var ErrNotFound = session.ErrNotFound

var logf = monitoring.Subsystem("db")

// DB wraps the SQLite connection pool.
type DB struct {
	*sql.DB
}

// MigrationsFS returns the embedded migrations rooted at the migrations
// directory.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// OpenDB opens the database at path and applies connection pragmas
// without touching the schema.
func OpenDB(path string) (*DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	sqlDB, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &DB{sqlDB}, nil
}

// Open opens the database at path and applies all pending migrations.
func Open(path string) (*DB, error) {
	database, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(MigrationsFS()); err != nil {
		database.Close()
		return nil, err
	}
	version, _, err := database.MigrateVersion(MigrationsFS())
	if err == nil {
		logf("opened %s at schema version %d", path, version)
	}
	return database, nil
}

// Store implements session.Store on top of the three record stores.
type Store struct {
	*ScoreStore
	*TrialStore
	*RecordingStore
}

var _ session.Store = (*Store)(nil)

// NewStore returns a Store backed by database.
func NewStore(database *DB) *Store {
	return &Store{
		ScoreStore:     NewScoreStore(database.DB),
		TrialStore:     NewTrialStore(database.DB),
		RecordingStore: NewRecordingStore(database.DB),
	}
}
