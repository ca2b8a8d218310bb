// Package common contains shared constants and sentinel errors used across
// skillhub components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// LatestTag is the reserved tag that always points at a package's latest version.
const LatestTag = "latest"
