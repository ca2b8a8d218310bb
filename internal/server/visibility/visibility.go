// Package visibility derives the search-facing visibility of a version.
package visibility

import "github.com/dmitrijs2005/skillhub/internal/server/models"

// For returns the visibility of a version row. A soft-deleted package
// overrides everything else.
func For(isLatest, isApproved, deleted bool) models.Visibility {
	if deleted {
		return models.VisibilityDeleted
	}
	switch {
	case isLatest && isApproved:
		return models.VisibilityLatestApproved
	case isLatest:
		return models.VisibilityLatest
	case isApproved:
		return models.VisibilityArchivedApproved
	default:
		return models.VisibilityArchived
	}
}

// Apply recomputes p.Visibility in place from its flags and the package
// deletion state.
func Apply(p *models.Projection, deleted bool) {
	p.Visibility = For(p.IsLatest, p.IsApproved, deleted)
}
