// Package services contains the registry business logic. Every entry point
// runs as one serializable transaction over repositories obtained from the
// RepositoryManager.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/moderation"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
)

// PublishService turns a submitted file set into an immutable version.
type PublishService struct {
	db *sql.DB
	publisher
	logger logging.Logger
}

func NewPublishService(db *sql.DB, m repomanager.RepositoryManager, scanner moderation.Scanner, logger logging.Logger) *PublishService {
	return &PublishService{
		db:        db,
		publisher: publisher{repomanager: m, scanner: scanner, now: time.Now},
		logger:    logger.With("module", "publish"),
	}
}

// Publish creates the package on first publish and appends a version owned
// by actorID. The new version becomes "latest" together with any tags in
// the input.
func (s *PublishService) Publish(ctx context.Context, actorID string, in PublishInput) (*PublishResult, error) {
	in, err := prepare(in)
	if err != nil {
		return nil, err
	}

	var res *PublishResult
	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		res, err = s.publish(ctx, tx, actorID, actorID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "version published", "slug", in.Slug, "version", in.Version, "package_id", res.PackageID)
	return res, nil
}
