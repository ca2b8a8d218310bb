package fingerprints

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.FingerprintEntry) (*models.FingerprintEntry, error) {

	query :=
		`INSERT INTO version_fingerprints (package_id, version_id, fingerprint)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, e.PackageID, e.VersionID, e.Fingerprint).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) FindByPackageAndFingerprint(ctx context.Context, packageID, fingerprint string, limit int) ([]*models.FingerprintEntry, error) {

	query :=
		`SELECT id, package_id, version_id, fingerprint, created_at FROM version_fingerprints
		 WHERE package_id = $1 AND fingerprint = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3
		 `

	rows, err := r.db.QueryContext(ctx, query, packageID, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.FingerprintEntry
	for rows.Next() {
		e := &models.FingerprintEntry{}
		if err := rows.Scan(&e.ID, &e.PackageID, &e.VersionID, &e.Fingerprint, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) DeleteByPackage(ctx context.Context, packageID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM version_fingerprints WHERE package_id = $1`, packageID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
