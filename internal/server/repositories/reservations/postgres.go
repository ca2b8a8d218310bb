package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Active(ctx context.Context, slug string, now time.Time) (*models.Reservation, error) {
	query :=
		`SELECT id, slug, original_owner_user_id, reason, reserved_at, expires_at
		 FROM slug_reservations
		 WHERE slug = $1 AND released_at IS NULL AND expires_at > $2
		 ORDER BY reserved_at DESC
		 LIMIT 1
		 `

	res := &models.Reservation{}
	err := r.db.QueryRowContext(ctx, query, slug, now).Scan(&res.ID, &res.Slug, &res.OriginalOwnerUserID,
		&res.Reason, &res.ReservedAt, &res.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) Reserve(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {

	query :=
		`INSERT INTO slug_reservations (slug, original_owner_user_id, reason, expires_at)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, reserved_at
		 `

	err := r.db.QueryRowContext(ctx, query, res.Slug, res.OriginalOwnerUserID, res.Reason, res.ExpiresAt).
		Scan(&res.ID, &res.ReservedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) Release(ctx context.Context, slug string, at time.Time) (int64, error) {
	query :=
		`UPDATE slug_reservations SET released_at = $2
		 WHERE slug = $1 AND released_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, slug, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
