package versions

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

// Repository stores immutable versions. Rows are never updated.
type Repository interface {
	Create(ctx context.Context, v *models.Version) (*models.Version, error)
	GetByID(ctx context.Context, id string) (*models.Version, error)
	GetByPackageAndVersion(ctx context.Context, packageID, version string) (*models.Version, error)
	ListRecent(ctx context.Context, packageID string, limit int) ([]*models.Version, error)
	DeleteByPackage(ctx context.Context, packageID string) (int64, error)
}
