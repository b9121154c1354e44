package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/abhisek/supportagent/ent"
	"github.com/abhisek/supportagent/ent/hook"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the ent client backing the generation event log.
type Store struct {
	db     *sql.DB
	client *ent.Client
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs auto-migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	client := ent.NewClient(ent.Driver(drv))
	// The event log is append-only.
	client.LLMRequestEvent.Use(hook.Reject(ent.OpUpdate | ent.OpUpdateOne | ent.OpDelete | ent.OpDeleteOne))

	if err := client.Schema.Create(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, client: client}, nil
}

// Client returns the underlying ent client.
func (s *Store) Client() *ent.Client {
	return s.client
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{client: s.client}
}

// applyPragmas configures SQLite for a single-process writer.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
