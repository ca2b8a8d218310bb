package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/fingerprint"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
	"github.com/dmitrijs2005/skillhub/internal/server/metadata"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
)

const (
	indexLookupLimit          = 25
	defaultFallbackScanWindow = 200
)

var readOnlySerializable = &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true}

// ResolveResult carries the matching version string, if any, and the
// package's current latest version string.
type ResolveResult struct {
	Match         *string
	LatestVersion *string
}

type ResolveService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scanWindow  int
}

func NewResolveService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ResolveService {
	window := cfg.FallbackScanWindow
	if window <= 0 {
		window = defaultFallbackScanWindow
	}
	return &ResolveService{db: db, repomanager: m, scanWindow: window}
}

// ResolveVersionByHash maps a content fingerprint to a version of slug.
// The fingerprint index is consulted first. Without a live index hit the most
// recent versions are scanned, which also covers versions predating the index.
func (s *ResolveService) ResolveVersionByHash(ctx context.Context, slug, hash string) (*ResolveResult, error) {
	slug = metadata.NormalizeSlug(slug)
	if slug == "" {
		return nil, common.ErrInvalidSlug
	}
	hash = fingerprint.Normalize(hash)
	if !fingerprint.Valid(hash) {
		return nil, common.ErrInvalidHash
	}

	res := &ResolveResult{}

	err := dbx.WithTx(ctx, s.db, readOnlySerializable, func(ctx context.Context, tx dbx.DBTX) error {
		pkg, err := s.repomanager.Packages(tx).GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if pkg.Deleted() {
			return common.ErrorNotFound
		}

		versions := s.repomanager.Versions(tx)

		if pkg.LatestVersionID != nil {
			latest, err := versions.GetByID(ctx, *pkg.LatestVersionID)
			switch {
			case err == nil:
				res.LatestVersion = &latest.Version
			case !errors.Is(err, common.ErrorNotFound):
				return fmt.Errorf("error loading latest version: %w", err)
			}
		}

		entries, err := s.repomanager.Fingerprints(tx).FindByPackageAndFingerprint(ctx, pkg.ID, hash, indexLookupLimit)
		if err != nil {
			return fmt.Errorf("error querying fingerprint index: %w", err)
		}

		if len(entries) > 0 {
			v, err := versions.GetByID(ctx, newestEntry(entries).VersionID)
			switch {
			case err == nil:
				if v.SoftDeletedAt == nil {
					res.Match = &v.Version
					return nil
				}
			case !errors.Is(err, common.ErrorNotFound):
				return fmt.Errorf("error loading version: %w", err)
			}
		}

		recent, err := versions.ListRecent(ctx, pkg.ID, s.scanWindow)
		if err != nil {
			return fmt.Errorf("error listing versions: %w", err)
		}
		for _, v := range recent {
			if v.SoftDeletedAt != nil {
				continue
			}
			fp := v.Fingerprint
			if fp == "" {
				fp = fingerprint.Compute(v.Files.Digests())
			}
			if fp == hash {
				res.Match = &v.Version
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// newestEntry returns the entry with the latest CreatedAt. Ties keep the
// earlier entry, which the index query already orders newest first.
func newestEntry(entries []*models.FingerprintEntry) *models.FingerprintEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	return best
}
