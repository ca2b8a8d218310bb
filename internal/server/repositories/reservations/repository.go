package reservations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

type Repository interface {
	// Active returns the unreleased, unexpired reservation of slug at now.
	Active(ctx context.Context, slug string, now time.Time) (*models.Reservation, error)
	Reserve(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	// Release marks every outstanding reservation of slug as released.
	Release(ctx context.Context, slug string, at time.Time) (int64, error)
}
