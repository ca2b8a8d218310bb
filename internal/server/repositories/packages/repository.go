package packages

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

// Repository persists packages. The ForUpdate variants lock the row until
// the surrounding transaction ends.
type Repository interface {
	Create(ctx context.Context, p *models.Package) (*models.Package, error)
	GetBySlug(ctx context.Context, slug string) (*models.Package, error)
	GetBySlugForUpdate(ctx context.Context, slug string) (*models.Package, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Package, error)
	Update(ctx context.Context, p *models.Package) error
	Delete(ctx context.Context, id string) error
}
