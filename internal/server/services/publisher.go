package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/fingerprint"
	"github.com/dmitrijs2005/skillhub/internal/server/metadata"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/moderation"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skillhub/internal/server/visibility"
	"golang.org/x/mod/semver"
)

// ForkRef names the upstream package a new package is forked from.
// An empty Version means "unspecified".
type ForkRef struct {
	Slug    string
	Version string
}

// PublishInput is one version submission.
type PublishInput struct {
	Slug            string
	DisplayName     string
	Version         string
	Changelog       string
	ChangelogSource models.ChangelogSource
	Tags            []string
	ForkOf          *ForkRef
	Files           models.Files
	Parsed          models.ParsedMetadata
	Embedding       models.Embedding
}

type PublishResult struct {
	PackageID    string
	VersionID    string
	ProjectionID string
}

// publisher runs the transactional part of a publish. It is shared by
// PublishService and RestoreService so both paths produce identical rows.
type publisher struct {
	repomanager repomanager.RepositoryManager
	scanner     moderation.Scanner
	now         func() time.Time
}

// prepare normalises and validates the parts of a submission that do not
// need the database.
func prepare(in PublishInput) (PublishInput, error) {
	in.Slug = metadata.NormalizeSlug(in.Slug)
	if !metadata.ValidSlug(in.Slug) {
		return in, fmt.Errorf("%w: %q", common.ErrInvalidSlug, in.Slug)
	}

	in.Version = strings.TrimSpace(in.Version)
	if !validVersion(in.Version) {
		return in, fmt.Errorf("%w: %q", common.ErrInvalidVersion, in.Version)
	}

	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		in.DisplayName = in.Slug
	}

	if in.ChangelogSource == "" {
		in.ChangelogSource = models.ChangelogUser
	}

	if len(in.Files) == 0 {
		return in, fmt.Errorf("%w: no files", common.ErrInvalidPath)
	}
	files := make(models.Files, 0, len(in.Files))
	for _, f := range in.Files {
		p, ok := metadata.SanitizePath(f.Path)
		if !ok {
			return in, fmt.Errorf("%w: %q", common.ErrInvalidPath, f.Path)
		}
		f.Path = p
		files = append(files, f)
	}
	in.Files = files

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !validTag(t) {
			return in, fmt.Errorf("%w: %q", common.ErrInvalidTag, t)
		}
		tags = append(tags, t)
	}
	in.Tags = tags

	return in, nil
}

// validVersion accepts semantic versions with or without a leading "v".
func validVersion(v string) bool {
	if v == "" {
		return false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}

// activeUser loads id and fails with ErrActorNotFound unless the user exists
// and is neither deleted nor deactivated.
func activeUser(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, id string) (*models.User, error) {
	u, err := m.Users(db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrActorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !u.Active() {
		return nil, common.ErrActorNotFound
	}
	return u, nil
}

// publish writes one version of in.Slug owned by ownerID. actorID is the
// audit actor; it differs from the owner only on the restore path.
func (p *publisher) publish(ctx context.Context, tx dbx.DBTX, ownerID, actorID string, in PublishInput) (*PublishResult, error) {
	if _, err := activeUser(ctx, p.repomanager, tx, ownerID); err != nil {
		return nil, err
	}

	packages := p.repomanager.Packages(tx)

	pkg, err := packages.GetBySlugForUpdate(ctx, in.Slug)
	exists := true
	switch {
	case errors.Is(err, common.ErrorNotFound):
		exists = false
	case err != nil:
		return nil, fmt.Errorf("error loading package: %w", err)
	case pkg.OwnerUserID != ownerID:
		return nil, common.ErrNotOwner
	}

	// A version without a description keeps the summary already on the package.
	summary := metadata.Summary(in.Parsed, in.Slug, in.DisplayName)
	if exists && pkg.Summary != nil && metadata.NormalizeSummary(in.Parsed.Description) == "" {
		summary = *pkg.Summary
	}

	flags, err := p.scanner.Scan(moderation.Submission{
		Slug:        in.Slug,
		DisplayName: in.DisplayName,
		Summary:     summary,
		Parsed:      in.Parsed,
		Files:       in.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning submission: %w", err)
	}

	if !exists {
		pkg, err = p.createPackage(ctx, tx, ownerID, in, summary, flags)
		if err != nil {
			return nil, err
		}
	}

	versions := p.repomanager.Versions(tx)

	_, err = versions.GetByPackageAndVersion(ctx, pkg.ID, in.Version)
	if err == nil {
		return nil, common.ErrVersionExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking version: %w", err)
	}

	fp := fingerprint.Compute(in.Files.Digests())

	version, err := versions.Create(ctx, &models.Version{
		PackageID:       pkg.ID,
		Version:         in.Version,
		Fingerprint:     fp,
		Changelog:       in.Changelog,
		ChangelogSource: in.ChangelogSource,
		Files:           in.Files,
		Parsed:          in.Parsed,
		CreatedBy:       ownerID,
	})
	if err != nil {
		if errors.Is(err, common.ErrVersionExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating version: %w", err)
	}

	if pkg.Tags == nil {
		pkg.Tags = models.Tags{}
	}
	pkg.Tags[common.LatestTag] = version.ID
	for _, t := range in.Tags {
		pkg.Tags[t] = version.ID
	}
	pkg.LatestVersionID = &version.ID
	pkg.DisplayName = in.DisplayName
	pkg.Summary = &summary
	pkg.ModerationFlags = flags
	pkg.Stats.Versions++
	pkg.SoftDeletedAt = nil
	if pkg.ModerationStatus == "" {
		pkg.ModerationStatus = models.ModerationActive
	}

	if err := packages.Update(ctx, pkg); err != nil {
		return nil, fmt.Errorf("error updating package: %w", err)
	}

	projectionsRepo := p.repomanager.Projections(tx)

	if _, err := reproject(ctx, projectionsRepo, pkg); err != nil {
		return nil, err
	}

	projection, err := projectionsRepo.Create(ctx, &models.Projection{
		PackageID:   pkg.ID,
		VersionID:   version.ID,
		OwnerUserID: pkg.OwnerUserID,
		Embedding:   in.Embedding,
		IsLatest:    true,
		IsApproved:  pkg.Approved,
		Visibility:  visibility.For(true, pkg.Approved, false),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating projection: %w", err)
	}

	_, err = p.repomanager.Fingerprints(tx).Create(ctx, &models.FingerprintEntry{
		PackageID:   pkg.ID,
		VersionID:   version.ID,
		Fingerprint: fp,
	})
	if err != nil {
		return nil, fmt.Errorf("error indexing fingerprint: %w", err)
	}

	_, err = p.repomanager.AuditLogs(tx).Append(ctx, &models.AuditLog{
		ActorUserID: actorID,
		Action:      models.AuditPackagePublish,
		TargetType:  models.TargetPackage,
		TargetID:    pkg.ID,
		Metadata:    models.AuditMetadata{"slug": pkg.Slug, "version": in.Version},
	})
	if err != nil {
		return nil, fmt.Errorf("error writing audit log: %w", err)
	}

	return &PublishResult{PackageID: pkg.ID, VersionID: version.ID, ProjectionID: projection.ID}, nil
}

// createPackage inserts a new package row for in.Slug. A slug reserved for a
// different owner is refused; the rightful owner claiming it releases the
// reservation.
func (p *publisher) createPackage(ctx context.Context, tx dbx.DBTX, ownerID string, in PublishInput, summary string, flags []string) (*models.Package, error) {
	now := p.now()

	reservations := p.repomanager.Reservations(tx)

	reservation, err := reservations.Active(ctx, in.Slug, now)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		reservation = nil
	case err != nil:
		return nil, fmt.Errorf("error checking reservation: %w", err)
	case reservation.OriginalOwnerUserID != ownerID:
		return nil, common.ErrSlugReserved
	}

	forkOf, err := p.resolveFork(ctx, tx, in.ForkOf, now)
	if err != nil {
		return nil, err
	}

	pkg, err := p.repomanager.Packages(tx).Create(ctx, &models.Package{
		Slug:             in.Slug,
		DisplayName:      in.DisplayName,
		Summary:          &summary,
		OwnerUserID:      ownerID,
		ForkOf:           forkOf,
		Tags:             models.Tags{},
		ModerationStatus: models.ModerationActive,
		ModerationFlags:  flags,
	})
	if err != nil {
		if errors.Is(err, common.ErrSlugTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating package: %w", err)
	}

	if reservation != nil {
		if _, err := reservations.Release(ctx, in.Slug, now); err != nil {
			return nil, fmt.Errorf("error releasing reservation: %w", err)
		}
	}

	return pkg, nil
}

func (p *publisher) resolveFork(ctx context.Context, tx dbx.DBTX, ref *ForkRef, now time.Time) (*models.ForkOf, error) {
	if ref == nil {
		return nil, nil
	}

	upstream, err := p.repomanager.Packages(tx).GetBySlug(ctx, metadata.NormalizeSlug(ref.Slug))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUpstreamNotFound
		}
		return nil, fmt.Errorf("error loading upstream: %w", err)
	}
	if upstream.Deleted() {
		return nil, common.ErrUpstreamNotFound
	}

	version := strings.TrimSpace(ref.Version)
	if version != "" {
		v, err := p.repomanager.Versions(tx).GetByPackageAndVersion(ctx, upstream.ID, version)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrUpstreamNotFound
			}
			return nil, fmt.Errorf("error loading upstream version: %w", err)
		}
		if v.SoftDeletedAt != nil {
			return nil, common.ErrUpstreamNotFound
		}
	}

	return &models.ForkOf{PackageID: upstream.ID, Version: version, At: now}, nil
}
