// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/migrations"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/fingerprints"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/packages"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/projections"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/reservations"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/versions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Packages(db dbx.DBTX) packages.Repository {
	return packages.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Versions(db dbx.DBTX) versions.Repository {
	return versions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Fingerprints(db dbx.DBTX) fingerprints.Repository {
	return fingerprints.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Projections(db dbx.DBTX) projections.Repository {
	return projections.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Reservations(db dbx.DBTX) reservations.Repository {
	return reservations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AuditLogs(db dbx.DBTX) auditlogs.Repository {
	return auditlogs.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
