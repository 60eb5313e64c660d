package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"cip-service/internal/infrastructure/logx"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// readyTimeout bounds how long RunMigrations waits for the server to accept connections.
const readyTimeout = 15 * time.Second

// RunMigrations applies every embedded migration that has not been applied yet.
func RunMigrations(ctx context.Context, db *DB) error {
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqldb.Close()

	if err := waitReady(ctx, sqldb); err != nil {
		return err
	}

	m, err := newMigrator(sqldb)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	logx.L().Info("migrate.done", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func waitReady(ctx context.Context, sqldb *sql.DB) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = readyTimeout
	op := func() error { return sqldb.PingContext(ctx) }
	notify := func(err error, wait time.Duration) {
		logx.L().Warn("migrate.db_not_ready", zap.Error(err), zap.Duration("retry_in", wait))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

func newMigrator(sqldb *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate src: %w", err)
	}
	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{MigrationsTable: "cip_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}
