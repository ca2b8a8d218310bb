// Package common defines shared constants and sentinel errors used across
// the registry layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrForbidden  = errors.New("forbidden")

	// Publish errors.
	ErrActorNotFound    = errors.New("actor not found")
	ErrNotOwner         = errors.New("only the owner can publish updates")
	ErrVersionExists    = errors.New("version already exists")
	ErrUpstreamNotFound = errors.New("upstream package not found")
	ErrInvalidSlug      = errors.New("invalid slug")
	ErrInvalidVersion   = errors.New("invalid version")
	ErrInvalidPath      = errors.New("invalid file path")
	ErrSlugReserved     = errors.New("slug is reserved for its previous owner")

	// Tag errors.
	ErrVersionNotFound = errors.New("version not found")
	ErrInvalidTag      = errors.New("invalid tag")

	// Restore errors.
	ErrSlugTaken = errors.New("slug occupied by another owner")

	// Hash resolution errors.
	ErrInvalidHash = errors.New("invalid content hash")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
