// Package common contains shared constants and sentinel errors used across
// dentdocs components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultContentType is sent when the source of a payload cannot tell what
// it contains.
const DefaultContentType = "application/octet-stream"

// Roles carried in access tokens.
const (
	RoleManager = "manager"
	RoleDentist = "dentist"
)
