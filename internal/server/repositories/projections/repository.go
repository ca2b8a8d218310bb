package projections

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

// Repository stores the search-facing projection rows, one per version.
type Repository interface {
	Create(ctx context.Context, p *models.Projection) (*models.Projection, error)
	// ListByPackage returns every row of a package, locked for update.
	ListByPackage(ctx context.Context, packageID string) ([]*models.Projection, error)
	Update(ctx context.Context, p *models.Projection) error
	DeleteByPackage(ctx context.Context, packageID string) (int64, error)
}
