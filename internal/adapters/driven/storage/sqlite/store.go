package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/connectorctl/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connectorctl/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Ensure Store implements the interface.
var _ driven.ConnectorConfiguration = (*Store)(nil)

// Store is a SQLite-backed connector configuration.
type Store struct {
	*memory.ConnectorConfiguration

	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at dbPath and loads every entry.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required: %w", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	entries, err := s.loadAll(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load connector configuration '%s': %w", dbPath, err)
	}
	s.ConnectorConfiguration = memory.NewConnectorConfiguration(entries)
	logger.Debug("Loaded %d connector configurations from '%s'", len(entries), dbPath)

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Add inserts settings at name.
func (s *Store) Add(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Contains(name) {
		return fmt.Errorf("connector configuration %q: %w", name, domain.ErrAlreadyExists)
	}

	settingsJSON, err := marshalSettings(settings.Settings)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO connectors (name, id, version, enable, settings, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, name, settings.ID, settings.Version, settings.Enable, settingsJSON, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving connector configuration: %w", err)
	}

	return s.ConnectorConfiguration.Add(context.Background(), name, settings)
}

// Remove deletes the entry at name.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Contains(name) {
		return false, nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM connectors WHERE name = ?", name)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting connector configuration: %w", err)
	}

	return s.ConnectorConfiguration.Remove(context.Background(), name)
}

// Set overwrites the entry at name.
func (s *Store) Set(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Contains(name) {
		return fmt.Errorf("connector configuration %q: %w", name, domain.ErrConfigurationNotFound)
	}

	settingsJSON, err := marshalSettings(settings.Settings)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE connectors SET id = ?, version = ?, enable = ?, settings = ?, updated_at = ?
			WHERE name = ?
		`, settings.ID, settings.Version, settings.Enable, settingsJSON, time.Now().UTC(), name)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating connector configuration: %w", err)
	}

	return s.ConnectorConfiguration.Set(context.Background(), name, settings)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func (s *Store) loadAll(ctx context.Context) (map[string]domain.ConnectorSettings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, id, version, enable, settings FROM connectors")
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]domain.ConnectorSettings)
	for rows.Next() {
		var name string
		var settings domain.ConnectorSettings
		var settingsJSON sql.NullString
		if err := rows.Scan(&name, &settings.ID, &settings.Version, &settings.Enable, &settingsJSON); err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		if settingsJSON.Valid && settingsJSON.String != "" && settingsJSON.String != jsonNull {
			if err := json.Unmarshal([]byte(settingsJSON.String), &settings.Settings); err != nil {
				return nil, fmt.Errorf("connector %q settings: %w: %w", name, domain.ErrMalformedConfiguration, err)
			}
		}
		entries[name] = settings
	}
	return entries, rows.Err()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("Applied migration %s", name)
	}

	return nil
}

func marshalSettings(settings map[string]any) (sql.NullString, error) {
	if settings == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling settings: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
