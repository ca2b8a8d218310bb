package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error)
	// PendingEvictions lists slug evictions whose evicted package has no
	// purge entry yet, oldest first.
	PendingEvictions(ctx context.Context, limit int) ([]*models.AuditLog, error)
}
