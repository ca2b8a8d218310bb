package models

import (
	"database/sql/driver"
	"time"
)

// Tags maps a tag name to a version id. The "latest" tag is reserved.
type Tags map[string]string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return jsonValue(t)
}

func (t *Tags) Scan(src any) error { return jsonScan(src, t) }

// Flags is the moderation flag set stored verbatim on a package.
type Flags []string

func (f Flags) Value() (driver.Value, error) {
	if f == nil {
		f = Flags{}
	}
	return jsonValue(f)
}

func (f *Flags) Scan(src any) error { return jsonScan(src, f) }

// Stats are the aggregate counters of a package.
type Stats struct {
	Versions        int64 `json:"versions"`
	Downloads       int64 `json:"downloads"`
	Stars           int64 `json:"stars"`
	InstallsCurrent int64 `json:"installsCurrent"`
	InstallsAllTime int64 `json:"installsAllTime"`
	Comments        int64 `json:"comments"`
}

func (s Stats) Value() (driver.Value, error) { return jsonValue(s) }

func (s *Stats) Scan(src any) error { return jsonScan(src, s) }

type ModerationStatus string

const (
	ModerationActive ModerationStatus = "active"
	ModerationHidden ModerationStatus = "hidden"
)

// ForkOf is the upstream lineage captured when a package is created.
type ForkOf struct {
	PackageID string
	Version   string
	At        time.Time
}

type Package struct {
	ID               string
	Slug             string
	DisplayName      string
	Summary          *string
	OwnerUserID      string
	ForkOf           *ForkOf
	Tags             Tags
	LatestVersionID  *string
	ModerationStatus ModerationStatus
	ModerationFlags  Flags
	Approved         bool
	SoftDeletedAt    *time.Time
	Stats            Stats
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Deleted reports whether the package is soft-deleted.
func (p *Package) Deleted() bool {
	return p.SoftDeletedAt != nil
}
