package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

const slugConstraint = "packages_slug_key"

const selectColumns = `SELECT id, slug, display_name, summary, owner_user_id,
		 fork_of_package_id, fork_of_version, fork_of_at,
		 tags, latest_version_id, moderation_status, moderation_flags, approved,
		 soft_deleted_at, stats, created_at, updated_at
		 FROM packages`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Package) (*models.Package, error) {

	query :=
		`INSERT INTO packages (slug, display_name, summary, owner_user_id,
		 fork_of_package_id, fork_of_version, fork_of_at,
		 tags, moderation_status, moderation_flags, approved, stats)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at
		 `

	var forkID, forkVersion sql.NullString
	var forkAt sql.NullTime
	if p.ForkOf != nil {
		forkID = sql.NullString{String: p.ForkOf.PackageID, Valid: true}
		forkVersion = sql.NullString{String: p.ForkOf.Version, Valid: p.ForkOf.Version != ""}
		forkAt = sql.NullTime{Time: p.ForkOf.At, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		p.Slug, p.DisplayName, p.Summary, p.OwnerUserID,
		forkID, forkVersion, forkAt,
		p.Tags, p.ModerationStatus, p.ModerationFlags, p.Approved, p.Stats,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, slugConstraint) {
			return nil, common.ErrSlugTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Package, error) {
	return r.getOne(ctx, selectColumns+` WHERE slug = $1`, slug)
}

func (r *PostgresRepository) GetBySlugForUpdate(ctx context.Context, slug string) (*models.Package, error) {
	return r.getOne(ctx, selectColumns+` WHERE slug = $1 FOR UPDATE`, slug)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Package, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Package, error) {
	p := &models.Package{}

	var summary, forkID, forkVersion, latest sql.NullString
	var forkAt, softDeletedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.Slug, &p.DisplayName, &summary, &p.OwnerUserID,
		&forkID, &forkVersion, &forkAt,
		&p.Tags, &latest, &p.ModerationStatus, &p.ModerationFlags, &p.Approved,
		&softDeletedAt, &p.Stats, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if summary.Valid {
		p.Summary = &summary.String
	}
	if latest.Valid {
		p.LatestVersionID = &latest.String
	}
	if softDeletedAt.Valid {
		p.SoftDeletedAt = &softDeletedAt.Time
	}
	if forkID.Valid {
		p.ForkOf = &models.ForkOf{PackageID: forkID.String, Version: forkVersion.String, At: forkAt.Time}
	}
	if p.Tags == nil {
		p.Tags = models.Tags{}
	}

	return p, nil
}

// Update writes every mutable column. Fork lineage is never rewritten.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Package) error {

	query :=
		`UPDATE packages SET display_name = $2, summary = $3, tags = $4,
		 latest_version_id = $5, moderation_status = $6, moderation_flags = $7,
		 approved = $8, soft_deleted_at = $9, stats = $10, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.DisplayName, p.Summary, p.Tags,
		p.LatestVersionID, p.ModerationStatus, p.ModerationFlags,
		p.Approved, p.SoftDeletedAt, p.Stats,
	).Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM packages WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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
