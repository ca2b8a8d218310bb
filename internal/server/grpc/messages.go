package grpc

import "github.com/dmitrijs2005/skillhub/internal/server/models"

type ForkRef struct {
	Slug    string `json:"slug"`
	Version string `json:"version,omitempty"`
}

type FileDescriptor struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	StorageRef  string `json:"storageRef"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"contentType,omitempty"`
}

type PublishRequest struct {
	Slug            string                 `json:"slug"`
	DisplayName     string                 `json:"displayName"`
	Version         string                 `json:"version"`
	Changelog       string                 `json:"changelog"`
	ChangelogSource string                 `json:"changelogSource,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	ForkOf          *ForkRef               `json:"forkOf,omitempty"`
	Files           []FileDescriptor       `json:"files"`
	Parsed          *models.ParsedMetadata `json:"parsed,omitempty"`
	Embedding       []float32              `json:"embedding,omitempty"`
}

type PublishResponse struct {
	PackageID    string `json:"packageId"`
	VersionID    string `json:"versionId"`
	ProjectionID string `json:"projectionId"`
}

type TagUpdate struct {
	Tag       string `json:"tag"`
	VersionID string `json:"versionId"`
}

type UpdateTagsRequest struct {
	PackageID string      `json:"packageId"`
	Tags      []TagUpdate `json:"tags"`
}

type UpdateTagsResponse struct {
	Tags map[string]string `json:"tags"`
}

type SetApprovedRequest struct {
	PackageID string `json:"packageId"`
	Approved  bool   `json:"approved"`
}

type SetSoftDeletedRequest struct {
	PackageID string `json:"packageId"`
	Deleted   bool   `json:"deleted"`
}

type Empty struct{}

type ResolveRequest struct {
	Slug string `json:"slug"`
	Hash string `json:"hash"`
}

type ResolveResponse struct {
	Match         *string `json:"match"`
	LatestVersion *string `json:"latestVersion"`
}

// RestoreFile carries file bytes; JSON encodes Data as base64.
type RestoreFile struct {
	Path        string `json:"path"`
	Data        []byte `json:"data"`
	ContentType string `json:"contentType,omitempty"`
}

type RestoreRequest struct {
	OwnerUserID string                 `json:"ownerUserId"`
	Slug        string                 `json:"slug"`
	DisplayName string                 `json:"displayName"`
	Version     string                 `json:"version"`
	Files       []RestoreFile          `json:"files"`
	Parsed      *models.ParsedMetadata `json:"parsed,omitempty"`
	Force       bool                   `json:"forceOverwriteSquatter"`
}

type RestoreResponse struct {
	Slug             string `json:"slug"`
	Status           string `json:"status"`
	EvictedPackageID string `json:"evictedPackageId,omitempty"`
	PackageID        string `json:"packageId,omitempty"`
	VersionID        string `json:"versionId,omitempty"`
}
