package models

import (
	"database/sql/driver"
	"time"
)

const (
	AuditPackagePublish  = "package.publish"
	AuditPackageTags     = "package.tags"
	AuditBadgeSet        = "badge.set"
	AuditBadgeUnset      = "badge.unset"
	AuditPackageDelete   = "package.delete"
	AuditPackageUndelete = "package.undelete"
	AuditSlugEvict       = "slug.evict"
	AuditPackagePurge    = "package.purge"
)

const (
	TargetPackage = "package"
	TargetSlug    = "slug"
)

// AuditMetadata is the free-form payload of an audit entry.
type AuditMetadata map[string]any

func (m AuditMetadata) Value() (driver.Value, error) {
	if m == nil {
		m = AuditMetadata{}
	}
	return jsonValue(m)
}

func (m *AuditMetadata) Scan(src any) error { return jsonScan(src, m) }

type AuditLog struct {
	ID          string
	ActorUserID string
	Action      string
	TargetType  string
	TargetID    string
	Metadata    AuditMetadata
	CreatedAt   time.Time
}
