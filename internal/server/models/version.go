package models

import "time"

// ChangelogSource records who wrote a changelog.
type ChangelogSource string

const (
	ChangelogAuto ChangelogSource = "auto"
	ChangelogUser ChangelogSource = "user"
)

// Version is an immutable snapshot of a package's files.
type Version struct {
	ID        string
	PackageID string
	Version   string
	// Fingerprint is empty for rows written before fingerprints were stored.
	Fingerprint     string
	Changelog       string
	ChangelogSource ChangelogSource
	Files           Files
	Parsed          ParsedMetadata
	CreatedBy       string
	CreatedAt       time.Time
	SoftDeletedAt   *time.Time
}

// FingerprintEntry is one row of the (package, fingerprint) -> version index.
type FingerprintEntry struct {
	ID          string
	PackageID   string
	VersionID   string
	Fingerprint string
	CreatedAt   time.Time
}
