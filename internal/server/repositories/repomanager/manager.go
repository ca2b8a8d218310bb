package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/fingerprints"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/packages"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/projections"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/reservations"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/versions"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Packages(db dbx.DBTX) packages.Repository
	Versions(db dbx.DBTX) versions.Repository
	Fingerprints(db dbx.DBTX) fingerprints.Repository
	Projections(db dbx.DBTX) projections.Repository
	Reservations(db dbx.DBTX) reservations.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
