package projections

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Projection) (*models.Projection, error) {

	query :=
		`INSERT INTO search_projections (package_id, version_id, owner_user_id, embedding,
		 is_latest, is_approved, visibility)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.PackageID, p.VersionID, p.OwnerUserID, p.Embedding,
		p.IsLatest, p.IsApproved, p.Visibility,
	).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) ListByPackage(ctx context.Context, packageID string) ([]*models.Projection, error) {

	query :=
		`SELECT id, package_id, version_id, owner_user_id, embedding, is_latest, is_approved,
		 visibility, updated_at
		 FROM search_projections
		 WHERE package_id = $1
		 ORDER BY id
		 FOR UPDATE
		 `

	rows, err := r.db.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Projection
	for rows.Next() {
		p := &models.Projection{}
		if err := rows.Scan(&p.ID, &p.PackageID, &p.VersionID, &p.OwnerUserID, &p.Embedding,
			&p.IsLatest, &p.IsApproved, &p.Visibility, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

// Update writes the derived columns of a row. Embeddings are immutable.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Projection) error {

	query :=
		`UPDATE search_projections SET is_latest = $2, is_approved = $3, visibility = $4,
		 updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, p.ID, p.IsLatest, p.IsApproved, p.Visibility)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	switch n {
	case 0:
		return common.ErrorNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) DeleteByPackage(ctx context.Context, packageID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM search_projections WHERE package_id = $1`, packageID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
