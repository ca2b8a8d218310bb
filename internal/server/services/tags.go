package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

func validTag(t string) bool {
	return tagPattern.MatchString(t)
}

// TagUpdate points Tag at VersionID.
type TagUpdate struct {
	Tag       string
	VersionID string
}

type TagService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewTagService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *TagService {
	return &TagService{db: db, repomanager: m, logger: logger.With("module", "tags")}
}

// UpdateTags repoints tags of a package. Only the owner or a moderator may
// do it, and every target version must belong to the package. Moving
// "latest" also moves the package's latest version and its projection rows.
func (s *TagService) UpdateTags(ctx context.Context, actorID, packageID string, updates []TagUpdate) (models.Tags, error) {
	var tags models.Tags

	err := dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		actor, err := activeUser(ctx, s.repomanager, tx, actorID)
		if err != nil {
			return err
		}

		packages := s.repomanager.Packages(tx)

		pkg, err := packages.GetByIDForUpdate(ctx, packageID)
		if err != nil {
			return err
		}
		if pkg.OwnerUserID != actor.ID && !actor.IsModerator() {
			return common.ErrForbidden
		}

		if pkg.Tags == nil {
			pkg.Tags = models.Tags{}
		}

		versions := s.repomanager.Versions(tx)
		changed := make(map[string]any, len(updates))
		latestMoved := false

		for _, u := range updates {
			tag := strings.TrimSpace(u.Tag)
			if !validTag(tag) {
				return fmt.Errorf("%w: %q", common.ErrInvalidTag, u.Tag)
			}

			v, err := versions.GetByID(ctx, u.VersionID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrVersionNotFound
				}
				return fmt.Errorf("error loading version: %w", err)
			}
			if v.PackageID != pkg.ID {
				return common.ErrVersionNotFound
			}

			pkg.Tags[tag] = v.ID
			changed[tag] = v.Version
			if tag == common.LatestTag {
				id := v.ID
				pkg.LatestVersionID = &id
				latestMoved = true
			}
		}

		if err := packages.Update(ctx, pkg); err != nil {
			return fmt.Errorf("error updating package: %w", err)
		}

		if latestMoved {
			if _, err := reproject(ctx, s.repomanager.Projections(tx), pkg); err != nil {
				return err
			}
		}

		_, err = s.repomanager.AuditLogs(tx).Append(ctx, &models.AuditLog{
			ActorUserID: actor.ID,
			Action:      models.AuditPackageTags,
			TargetType:  models.TargetPackage,
			TargetID:    pkg.ID,
			Metadata:    models.AuditMetadata{"tags": changed},
		})
		if err != nil {
			return fmt.Errorf("error writing audit log: %w", err)
		}

		tags = pkg.Tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "tags updated", "package_id", packageID, "count", len(updates))
	return tags, nil
}
