package itests

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"

	"CrudAPI/internal"
	"CrudAPI/internal/logger"
)

const defaultTestDBName = "crudapi_test"

// testDatabase is a throwaway database on the server TEST_POSTGRES_DSN
// points at. It is recreated for every run and dropped afterwards.
type testDatabase struct {
	name     string
	dsn      string
	adminDSN string // same server, maintenance db "postgres"
	redacted string
}

// newTestDatabase derives the DSNs from baseDSN. Only URL DSNs on a local
// host are accepted: the suite drops the database it creates.
// TEST_DB_NAME overrides the database name.
func newTestDatabase(baseDSN string) (*testDatabase, error) {
	u, err := url.Parse(baseDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, errors.New("only URL DSN supported: postgres://...")
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
	default:
		return nil, fmt.Errorf("refuse non-local host for tests: %s", u.Hostname())
	}

	name := os.Getenv("TEST_DB_NAME")
	if name == "" {
		name = defaultTestDBName
	}
	if name == "postgres" || "/"+name == u.Path {
		// никогда не трогаем базу, на которую смотрит исходный DSN
		return nil, fmt.Errorf("test database %q must differ from the configured one", name)
	}

	d := &testDatabase{name: name, redacted: u.Redacted()}
	u.Path = "/" + name
	d.dsn = u.String()
	u.Path = "/postgres"
	d.adminDSN = u.String()
	return d, nil
}

// admin runs fn on a connection to the maintenance database.
func (d *testDatabase) admin(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, d.adminDSN)
	if err != nil {
		return fmt.Errorf("connect %s: %w", d.redacted, err)
	}
	defer conn.Close(context.Background())
	return fn(conn)
}

// recreate drops a database left over by an interrupted run and creates an
// empty one.
func (d *testDatabase) recreate(ctx context.Context) error {
	if err := d.drop(ctx); err != nil {
		return err
	}
	return d.admin(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{d.name}.Sanitize())
		return err
	})
}

func (d *testDatabase) drop(ctx context.Context) error {
	return d.admin(ctx, func(conn *pgx.Conn) error {
		// активные коннекты мешают DROP DATABASE
		if _, err := conn.Exec(ctx, `
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()`, d.name); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{d.name}.Sanitize())
		return err
	})
}

// migrate applies migrations/ from the repo root.
func (d *testDatabase) migrate() error {
	root, err := internal.FindRepoRoot()
	if err != nil {
		return fmt.Errorf("repo root not found: %w", err)
	}
	abs, err := filepath.Abs(filepath.Join(root, "migrations"))
	if err != nil {
		return fmt.Errorf("abs migrations: %w", err)
	}

	// file:// нужен абсолютный путь с прямыми слэшами
	m, err := migrate.New("file://"+filepath.ToSlash(abs), d.dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// SetupAndTeardownTestDB creates the test database, migrates it and hands
// its DSN to initFunc (usually opening the pool). The returned teardown
// drops it.
func SetupAndTeardownTestDB(baseDSN string, initFunc func(testDSN string) error) (teardown func() error, err error) {
	if os.Getenv("APP_ENV") == "production" {
		return nil, errors.New("APP_ENV=production, aborting tests")
	}
	d, err := newTestDatabase(baseDSN)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.recreate(ctx); err != nil {
		return nil, fmt.Errorf("create DB %q: %w. Ensure Postgres is running", d.name, err)
	}
	logger.Info("test_db_created", map[string]any{"db": d.name, "server": d.redacted})

	cleanup := func() error {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer dropCancel()
		return d.drop(dropCtx)
	}

	if err := d.migrate(); err != nil {
		_ = cleanup()
		return nil, err
	}
	logger.Info("test_db_migrated", map[string]any{"db": d.name})

	if initFunc != nil {
		if err := initFunc(d.dsn); err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("init test DB: %w", err)
		}
	}
	return cleanup, nil
}
