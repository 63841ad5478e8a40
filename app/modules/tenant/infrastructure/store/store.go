package tenantstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"
)

// FileName is the SQLite file holding one tenant's dataset.
const FileName = "rotation.db"

const defaultBusyTimeout = 5 * time.Second

var (
	// ErrStoreMissing indicates the store file does not exist on disk.
	ErrStoreMissing = errors.New("tenant store file does not exist")

	// ErrSchemaOutdated indicates the store has unapplied schema migrations.
	ErrSchemaOutdated = errors.New("tenant store schema has unapplied migrations")
)

// Options controls how a tenant store is opened.
type Options struct {
	// BusyTimeout bounds how long a writer waits for the store's write lock.
	BusyTimeout time.Duration
	// Create allows the file (and its parent directory) to be created.
	Create bool
}

// Store is one open handle onto a tenant's SQLite file. A Store is never
// shared between tenants and is closed by whoever opened it.
type Store struct {
	tenantID string
	path     string
	db       *bun.DB
}

// PathFor returns the store location for tenantID under baseDir.
func PathFor(baseDir, tenantID string) string {
	return filepath.Join(baseDir, tenantID, FileName)
}

// Open opens the tenant store at path. Without opts.Create a missing file is
// reported as ErrStoreMissing instead of silently creating an empty store.
func Open(ctx context.Context, tenantID, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("tenant store path is required")
	}
	cleanPath := filepath.Clean(path)

	if opts.Create {
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
			return nil, fmt.Errorf("create tenant store directory: %w", err)
		}
	} else if _, err := os.Stat(cleanPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", cleanPath, ErrStoreMissing)
		}
		return nil, fmt.Errorf("stat tenant store: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dsn(cleanPath, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection per handle keeps BEGIN IMMEDIATE and the lock row on the
	// same connection as every statement of the transaction.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{
		tenantID: tenantID,
		path:     cleanPath,
		db:       bun.NewDB(sqlDB, sqlitedialect.New()),
	}, nil
}

// dsn builds a modernc.org/sqlite URI. mode=rw refuses to create files;
// _txlock=immediate makes every transaction take the write lock up front.
func dsn(path string, opts Options) string {
	mode := "rw"
	if opts.Create {
		mode = "rwc"
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	return fmt.Sprintf(
		"file:%s?mode=%s&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path, mode, busy.Milliseconds(),
	)
}

func ensureForeignKeysEnabled(ctx context.Context, db *sql.DB) error {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// TenantID returns the tenant this handle belongs to.
func (s *Store) TenantID() string { return s.tenantID }

// Path returns the store file location.
func (s *Store) Path() string { return s.path }

// DB returns the bun handle for repositories.
func (s *Store) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close releases the handle. Safe on a nil or already closed Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Migrate applies every pending migration in migrations. Re-running it on an
// up-to-date store is a no-op.
func (s *Store) Migrate(ctx context.Context, migrations *migrate.Migrations) (*migrate.MigrationGroup, error) {
	migrator := newMigrator(s.db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init tenant migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate tenant store: %w", err)
	}
	return group, nil
}

// CheckSchema returns ErrSchemaOutdated when any migration in migrations has
// not been applied to this store.
func (s *Store) CheckSchema(ctx context.Context, migrations *migrate.Migrations) error {
	ms, err := newMigrator(s.db, migrations).MigrationsWithStatus(ctx)
	if err != nil {
		return fmt.Errorf("read tenant migration status: %w", err)
	}
	if pending := ms.Unapplied(); len(pending) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaOutdated, pending)
	}
	return nil
}

func newMigrator(db *bun.DB, migrations *migrate.Migrations) *migrate.Migrator {
	return migrate.NewMigrator(db, migrations, migrate.WithMarkAppliedOnSuccess(true))
}

// Remove deletes the store file, its WAL/SHM side files and the tenant
// directory that contains them. Missing files are not an error.
func Remove(path string) error {
	cleanPath := filepath.Clean(path)
	var errs []error
	for _, p := range []string{cleanPath, cleanPath + "-wal", cleanPath + "-shm", cleanPath + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(filepath.Dir(cleanPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
