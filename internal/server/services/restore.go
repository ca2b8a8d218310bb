package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/cleanup"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
	"github.com/dmitrijs2005/skillhub/internal/server/metadata"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/moderation"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skillhub/internal/server/storage"
	"github.com/dmitrijs2005/skillhub/internal/server/visibility"
	"github.com/opencontainers/go-digest"
)

const (
	RestoreStatusRestored      = "restored"
	RestoreStatusAlreadyExists = "already_exists"

	skillFileName       = "SKILL.md"
	restoreChangelog    = "Restored from backup"
	reservationReason   = "restore"
	defaultContentType  = "application/octet-stream"
	markdownContentType = "text/markdown"
)

// CleanupQueue accepts evicted packages for asynchronous purging.
type CleanupQueue interface {
	Enqueue(t cleanup.Task) bool
}

// RestoreFile is one file of a restore request, bytes included.
type RestoreFile struct {
	Path        string
	Data        []byte
	ContentType string
}

// RestoreInput describes a package to reinstate for OwnerUserID. A nil
// Parsed is derived from the SKILL.md file, if present.
type RestoreInput struct {
	OwnerUserID string
	Slug        string
	DisplayName string
	Version     string
	Files       []RestoreFile
	Parsed      *models.ParsedMetadata
	Force       bool
}

type RestoreResult struct {
	Slug             string
	Status           string
	EvictedPackageID string
	Publish          *PublishResult
}

// RestoreService reinstates a package from backed up files, evicting a
// squatter that holds the slug when forced to.
type RestoreService struct {
	db *sql.DB
	publisher
	store          storage.BlobStore
	queue          CleanupQueue
	logger         logging.Logger
	reservationTTL time.Duration
}

func NewRestoreService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	scanner moderation.Scanner, store storage.BlobStore, queue CleanupQueue, logger logging.Logger) *RestoreService {
	return &RestoreService{
		db:             db,
		publisher:      publisher{repomanager: m, scanner: scanner, now: time.Now},
		store:          store,
		queue:          queue,
		logger:         logger.With("module", "restore"),
		reservationTTL: cfg.ReservationTTL,
	}
}

// Restore stores the files, then in one transaction evicts a conflicting
// package (only with Force), publishes the version for the owner and
// releases the slug's reservations. A package already owned by the owner
// receives the version as a new one; an existing version reports
// RestoreStatusAlreadyExists. Purging the evicted package's dependents is
// queued after commit and never awaited.
func (s *RestoreService) Restore(ctx context.Context, actorID string, in RestoreInput) (*RestoreResult, error) {
	actor, err := activeUser(ctx, s.repomanager, s.db, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}

	pin := PublishInput{
		Slug:            in.Slug,
		DisplayName:     in.DisplayName,
		Version:         in.Version,
		Changelog:       restoreChangelog,
		ChangelogSource: models.ChangelogAuto,
	}
	for _, f := range in.Files {
		pin.Files = append(pin.Files, models.File{Path: f.Path})
	}
	if pin, err = prepare(pin); err != nil {
		return nil, err
	}

	if in.Parsed != nil {
		pin.Parsed = *in.Parsed
	} else if pin.Parsed, err = parseSkillFile(in.Files); err != nil {
		return nil, err
	}

	if pin.Files, err = s.upload(ctx, pin.Files, in.Files); err != nil {
		return nil, err
	}

	result := &RestoreResult{Slug: pin.Slug, Status: RestoreStatusRestored}
	var evicted *cleanup.Task

	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.now()

		existing, err := s.repomanager.Packages(tx).GetBySlugForUpdate(ctx, pin.Slug)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return fmt.Errorf("error loading package: %w", err)
		case existing.OwnerUserID == in.OwnerUserID:
		case !in.Force:
			return common.ErrSlugTaken
		default:
			if err := s.evict(ctx, tx, actor.ID, in.OwnerUserID, existing, now); err != nil {
				return err
			}
			evicted = &cleanup.Task{PackageID: existing.ID, Slug: existing.Slug, ActorUserID: actor.ID}
			result.EvictedPackageID = existing.ID
		}

		res, err := s.publish(ctx, tx, in.OwnerUserID, actor.ID, pin)
		if err != nil {
			if errors.Is(err, common.ErrVersionExists) && evicted == nil {
				result.Status = RestoreStatusAlreadyExists
				return nil
			}
			return err
		}
		result.Publish = res

		if _, err := s.repomanager.Reservations(tx).Release(ctx, pin.Slug, now); err != nil {
			return fmt.Errorf("error releasing reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if evicted != nil && !s.queue.Enqueue(*evicted) {
		s.logger.Warn(ctx, "cleanup queue full, purge deferred to sweep", "package_id", evicted.PackageID)
	}

	s.logger.Info(ctx, "package restored", "slug", pin.Slug, "status", result.Status, "evicted", result.EvictedPackageID)
	return result, nil
}

// evict deletes the squatter's package row, records the eviction and
// reserves the slug for the rightful owner. Dependent rows stay until the
// cleanup worker purges them.
func (s *RestoreService) evict(ctx context.Context, tx dbx.DBTX, actorID, ownerID string, squatter *models.Package, now time.Time) error {
	// Search rows outlive the package row until the purge; hide them now.
	projectionsRepo := s.repomanager.Projections(tx)
	rows, err := projectionsRepo.ListByPackage(ctx, squatter.ID)
	if err != nil {
		return fmt.Errorf("error listing squatter projections: %w", err)
	}
	for _, row := range rows {
		if row.Visibility == models.VisibilityDeleted {
			continue
		}
		visibility.Apply(row, true)
		if err := projectionsRepo.Update(ctx, row); err != nil {
			return fmt.Errorf("error hiding squatter projection: %w", err)
		}
	}

	if err := s.repomanager.Packages(tx).Delete(ctx, squatter.ID); err != nil {
		return fmt.Errorf("error deleting squatter: %w", err)
	}

	_, err = s.repomanager.AuditLogs(tx).Append(ctx, &models.AuditLog{
		ActorUserID: actorID,
		Action:      models.AuditSlugEvict,
		TargetType:  models.TargetPackage,
		TargetID:    squatter.ID,
		Metadata: models.AuditMetadata{
			"slug":                squatter.Slug,
			"squatterOwnerUserId": squatter.OwnerUserID,
			"rightfulOwnerUserId": ownerID,
		},
	})
	if err != nil {
		return fmt.Errorf("error writing audit log: %w", err)
	}

	_, err = s.repomanager.Reservations(tx).Reserve(ctx, &models.Reservation{
		Slug:                squatter.Slug,
		OriginalOwnerUserID: ownerID,
		Reason:              reservationReason,
		ReservedAt:          now,
		ExpiresAt:           now.Add(s.reservationTTL),
	})
	if err != nil {
		return fmt.Errorf("error reserving slug: %w", err)
	}
	return nil
}

// upload puts every file into byte storage under its content address and
// fills in the descriptor fields. files and raw are index aligned.
func (s *RestoreService) upload(ctx context.Context, files models.Files, raw []RestoreFile) (models.Files, error) {
	out := make(models.Files, 0, len(files))
	for i, f := range files {
		data := raw[i].Data
		sha := digest.SHA256.FromBytes(data).Encoded()

		contentType := raw[i].ContentType
		if contentType == "" {
			contentType = guessContentType(f.Path)
		}

		ref, err := s.store.Put(ctx, storage.ObjectKey(sha), data, contentType)
		if err != nil {
			return nil, fmt.Errorf("error storing %s: %w", f.Path, err)
		}

		f.Size = int64(len(data))
		f.SHA256 = sha
		f.StorageRef = ref
		f.ContentType = contentType
		out = append(out, f)
	}
	return out, nil
}

func parseSkillFile(files []RestoreFile) (models.ParsedMetadata, error) {
	for _, f := range files {
		if strings.EqualFold(path.Base(f.Path), skillFileName) {
			parsed, err := metadata.Parse(f.Data)
			if err != nil {
				return models.ParsedMetadata{}, fmt.Errorf("error parsing %s: %w", f.Path, err)
			}
			return parsed, nil
		}
	}
	return models.ParsedMetadata{}, nil
}

func guessContentType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".md" || ext == ".markdown" {
		return markdownContentType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultContentType
}
