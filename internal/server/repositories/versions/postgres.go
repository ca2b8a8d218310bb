package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

const packageVersionConstraint = "package_versions_package_version_key"

const selectColumns = `SELECT id, package_id, version, fingerprint, changelog, changelog_source,
		 files, parsed, created_by, created_at, soft_deleted_at
		 FROM package_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Version) (*models.Version, error) {

	query :=
		`INSERT INTO package_versions (package_id, version, fingerprint, changelog, changelog_source,
		 files, parsed, created_by)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		v.PackageID, v.Version, v.Fingerprint, v.Changelog, v.ChangelogSource,
		v.Files, v.Parsed, v.CreatedBy,
	).Scan(&v.ID, &v.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, packageVersionConstraint) {
			return nil, common.ErrVersionExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Version, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByPackageAndVersion(ctx context.Context, packageID, version string) (*models.Version, error) {
	return r.getOne(ctx, selectColumns+` WHERE package_id = $1 AND version = $2`, packageID, version)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Version, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// ListRecent returns up to limit versions of a package, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, packageID string, limit int) ([]*models.Version, error) {
	query := selectColumns + ` WHERE package_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, packageID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) DeleteByPackage(ctx context.Context, packageID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM package_versions WHERE package_id = $1`, packageID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanVersion(s rowScanner) (*models.Version, error) {
	v := &models.Version{}
	var fingerprint sql.NullString
	var softDeletedAt sql.NullTime

	if err := s.Scan(&v.ID, &v.PackageID, &v.Version, &fingerprint, &v.Changelog, &v.ChangelogSource,
		&v.Files, &v.Parsed, &v.CreatedBy, &v.CreatedAt, &softDeletedAt); err != nil {
		return nil, err
	}

	v.Fingerprint = fingerprint.String
	if softDeletedAt.Valid {
		v.SoftDeletedAt = &softDeletedAt.Time
	}
	return v, nil
}
