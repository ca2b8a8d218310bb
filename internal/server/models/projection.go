package models

import (
	"database/sql/driver"
	"time"
)

// Visibility is the derived exposure state of a version's search row.
type Visibility string

const (
	VisibilityLatestApproved   Visibility = "latest-approved"
	VisibilityLatest           Visibility = "latest"
	VisibilityArchivedApproved Visibility = "archived-approved"
	VisibilityArchived         Visibility = "archived"
	VisibilityDeleted          Visibility = "deleted"
)

// Embedding is the vector handed in by the embedding collaborator.
type Embedding []float32

func (e Embedding) Value() (driver.Value, error) {
	if e == nil {
		e = Embedding{}
	}
	return jsonValue(e)
}

func (e *Embedding) Scan(src any) error { return jsonScan(src, e) }

// Projection is the search-facing row of one version.
type Projection struct {
	ID          string
	PackageID   string
	VersionID   string
	OwnerUserID string
	Embedding   Embedding
	IsLatest    bool
	IsApproved  bool
	Visibility  Visibility
	UpdatedAt   time.Time
}
