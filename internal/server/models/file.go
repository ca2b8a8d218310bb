// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql/driver"

	"github.com/dmitrijs2005/skillhub/internal/fingerprint"
)

// File describes one file of a published version. The bytes themselves live
// in object storage under StorageRef.
type File struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	StorageRef  string `json:"storageRef"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"contentType,omitempty"`
}

// Files is the ordered file list of a version, stored as JSONB.
type Files []File

// Digests projects the list onto the inputs of the fingerprint function.
func (f Files) Digests() []fingerprint.Entry {
	out := make([]fingerprint.Entry, 0, len(f))
	for _, file := range f {
		out = append(out, fingerprint.Entry{Path: file.Path, Hash: file.SHA256})
	}
	return out
}

// Paths returns the file paths in list order.
func (f Files) Paths() []string {
	out := make([]string, 0, len(f))
	for _, file := range f {
		out = append(out, file.Path)
	}
	return out
}

func (f Files) Value() (driver.Value, error) {
	if f == nil {
		f = Files{}
	}
	return jsonValue(f)
}

func (f *Files) Scan(src any) error { return jsonScan(src, f) }
