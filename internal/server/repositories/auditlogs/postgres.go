package auditlogs

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

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditLog) (*models.AuditLog, error) {

	query :=
		`INSERT INTO audit_logs (actor_user_id, action, target_type, target_id, metadata)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, e.ActorUserID, e.Action, e.TargetType, e.TargetID, e.Metadata).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) PendingEvictions(ctx context.Context, limit int) ([]*models.AuditLog, error) {

	query :=
		`SELECT e.id, e.actor_user_id, e.action, e.target_type, e.target_id, e.metadata, e.created_at
		 FROM audit_logs e
		 WHERE e.action = $1
		   AND NOT EXISTS (
		     SELECT 1 FROM audit_logs p
		     WHERE p.action = $2 AND p.target_id = e.target_id
		   )
		 ORDER BY e.created_at
		 LIMIT $3
		 `

	rows, err := r.db.QueryContext(ctx, query, models.AuditSlugEvict, models.AuditPackagePurge, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.TargetType, &e.TargetID,
			&e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
