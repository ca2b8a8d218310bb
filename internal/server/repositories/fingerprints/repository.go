package fingerprints

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

// Repository is the (package, fingerprint) -> version index.
type Repository interface {
	Create(ctx context.Context, e *models.FingerprintEntry) (*models.FingerprintEntry, error)
	// FindByPackageAndFingerprint returns up to limit entries, newest first.
	FindByPackageAndFingerprint(ctx context.Context, packageID, fingerprint string, limit int) ([]*models.FingerprintEntry, error)
	DeleteByPackage(ctx context.Context, packageID string) (int64, error)
}
