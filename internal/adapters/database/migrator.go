package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

type migrator struct {
	db *sqlx.DB

	logger *slog.Logger
}

func NewDatabaseMigrator(db *sqlx.DB, logger *slog.Logger) *migrator {
	return &migrator{
		db:     db,
		logger: logger.With("component", "migrator"),
	}
}

// withInstance runs fn with a migrate instance bound to schemaName on a dedicated connection
func (m *migrator) withInstance(ctx context.Context, schemaName string, fn func(*migrate.Migrate) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer conn.Close()

	err = useSchema(ctx, conn, schemaName)
	if err != nil {
		return err
	}

	migrationSource, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	defer migrationSource.Close()

	dbDriver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		DatabaseName: DB_NAME,
		SchemaName:   schemaName,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", migrationSource, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer instance.Close()

	return fn(instance)
}

func useSchema(ctx context.Context, conn *sql.Conn, schemaName string) error {
	quoted := pq.QuoteIdentifier(schemaName)

	_, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoted))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schemaName, err)
	}

	_, err = conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", quoted))
	if err != nil {
		return fmt.Errorf("failed to set search path to %s: %w", schemaName, err)
	}
	return nil
}

// Migrate creates the completion_counts and player_names tables in schemaName,
// or brings them up to date.
func (m *migrator) Migrate(ctx context.Context, schemaName string) error {
	err := m.withInstance(ctx, schemaName, func(instance *migrate.Migrate) error {
		m.logger.InfoContext(ctx, "Starting migrations", "schema", schemaName)

		err := instance.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.InfoContext(ctx, "Schema is up to date", "schema", schemaName)
			return nil
		}
		if err != nil {
			return err
		}

		version, _, err := instance.Version()
		if err != nil {
			return fmt.Errorf("failed to read version after migrating: %w", err)
		}
		m.logger.InfoContext(ctx, "Migrations completed", "schema", schemaName, "version", version)
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate %s: %w", schemaName, err)
	}
	return nil
}

// Version returns the migration version of schemaName, 0 when nothing has been applied
func (m *migrator) Version(ctx context.Context, schemaName string) (uint, error) {
	var version uint
	err := m.withInstance(ctx, schemaName, func(instance *migrate.Migrate) error {
		v, dirty, err := instance.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("schema is dirty at version %d", v)
		}
		version = v
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("version of %s: %w", schemaName, err)
	}
	return version, nil
}

// rollback reverts every migration in schemaName
func (m *migrator) rollback(ctx context.Context, schemaName string) error {
	return m.withInstance(ctx, schemaName, func(instance *migrate.Migrate) error {
		return instance.Down()
	})
}
