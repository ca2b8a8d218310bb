package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
)

// ModerationService toggles the approval badge and soft deletion. Both
// re-run the projector over every version of the package.
type ModerationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewModerationService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ModerationService {
	return &ModerationService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "moderation"),
		now:         time.Now,
	}
}

// SetApproved sets or clears the approval badge. Admins only.
func (s *ModerationService) SetApproved(ctx context.Context, actorID, packageID string, approved bool) error {
	action := models.AuditBadgeUnset
	if approved {
		action = models.AuditBadgeSet
	}

	err := s.mutate(ctx, actorID, packageID, action,
		func(actor *models.User, _ *models.Package) error {
			if !actor.IsAdmin() {
				return common.ErrForbidden
			}
			return nil
		},
		func(pkg *models.Package) {
			pkg.Approved = approved
		})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "approval changed", "package_id", packageID, "approved", approved)
	return nil
}

// SetSoftDeleted hides or restores a package. The owner or a moderator may
// do it. Soft-deleted packages keep their rows; every projection row turns
// to the "deleted" visibility until the package is restored.
func (s *ModerationService) SetSoftDeleted(ctx context.Context, actorID, packageID string, deleted bool) error {
	action := models.AuditPackageUndelete
	if deleted {
		action = models.AuditPackageDelete
	}

	err := s.mutate(ctx, actorID, packageID, action,
		func(actor *models.User, pkg *models.Package) error {
			if pkg.OwnerUserID != actor.ID && !actor.IsModerator() {
				return common.ErrForbidden
			}
			return nil
		},
		func(pkg *models.Package) {
			if deleted {
				now := s.now()
				pkg.SoftDeletedAt = &now
				pkg.ModerationStatus = models.ModerationHidden
				return
			}
			pkg.SoftDeletedAt = nil
			pkg.ModerationStatus = models.ModerationActive
		})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "deletion changed", "package_id", packageID, "deleted", deleted)
	return nil
}

// mutate loads actor and package, checks permission, applies change,
// re-projects and writes the audit entry in one transaction.
func (s *ModerationService) mutate(ctx context.Context, actorID, packageID, action string,
	allow func(*models.User, *models.Package) error, change func(*models.Package)) error {

	return dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		actor, err := activeUser(ctx, s.repomanager, tx, actorID)
		if err != nil {
			return err
		}

		packages := s.repomanager.Packages(tx)

		pkg, err := packages.GetByIDForUpdate(ctx, packageID)
		if err != nil {
			return err
		}
		if err := allow(actor, pkg); err != nil {
			return err
		}

		change(pkg)

		if err := packages.Update(ctx, pkg); err != nil {
			return fmt.Errorf("error updating package: %w", err)
		}

		if _, err := reproject(ctx, s.repomanager.Projections(tx), pkg); err != nil {
			return err
		}

		_, err = s.repomanager.AuditLogs(tx).Append(ctx, &models.AuditLog{
			ActorUserID: actor.ID,
			Action:      action,
			TargetType:  models.TargetPackage,
			TargetID:    pkg.ID,
			Metadata:    models.AuditMetadata{"slug": pkg.Slug},
		})
		if err != nil {
			return fmt.Errorf("error writing audit log: %w", err)
		}
		return nil
	})
}
