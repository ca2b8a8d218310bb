package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/projections"
	"github.com/dmitrijs2005/skillhub/internal/server/visibility"
)

// reproject brings every projection row of pkg in line with the package:
// the row of the latest version is marked latest, approval follows the
// badge, visibility is recomputed. Rows are updated in place, never added or
// removed. Rows losing the latest flag are written first so the
// one-latest-row-per-package index never sees two.
func reproject(ctx context.Context, repo projections.Repository, pkg *models.Package) (int, error) {
	rows, err := repo.ListByPackage(ctx, pkg.ID)
	if err != nil {
		return 0, fmt.Errorf("error listing projections: %w", err)
	}

	var demoted, changed []*models.Projection
	for _, row := range rows {
		isLatest := pkg.LatestVersionID != nil && row.VersionID == *pkg.LatestVersionID
		want := visibility.For(isLatest, pkg.Approved, pkg.Deleted())

		if row.IsLatest == isLatest && row.IsApproved == pkg.Approved && row.Visibility == want {
			continue
		}

		wasLatest := row.IsLatest
		row.IsLatest = isLatest
		row.IsApproved = pkg.Approved
		row.Visibility = want

		if wasLatest && !isLatest {
			demoted = append(demoted, row)
		} else {
			changed = append(changed, row)
		}
	}

	for _, row := range append(demoted, changed...) {
		if err := repo.Update(ctx, row); err != nil {
			return 0, fmt.Errorf("error updating projection: %w", err)
		}
	}

	return len(demoted) + len(changed), nil
}
