package shim

import "errors"

// Resolution errors, surfaced when the registry cannot serve a shim key.
var (
	ErrUnknownShim       = errors.New("unknown shim key")
	ErrShimNotConfigured = errors.New("shim has no client credentials configured")
)

// Correlation errors. ErrInvalidState is the CSRF/replay boundary and is
// always fatal to a Complete call.
var (
	ErrInvalidState  = errors.New("invalid or already-consumed state token")
	ErrMissingState  = errors.New("callback carries no state token")
	ErrStateConflict = errors.New("state token already exists")
)

// Store errors.
var (
	ErrCredentialNotFound     = errors.New("access credential not found")
	ErrNoPendingAuthorization = errors.New("no pending authorization for state token")
)

// Protocol errors raised while exchanging tokens with a provider.
var (
	ErrRequestTokenRejected = errors.New("request token could not be retrieved")
	ErrAccessTokenRejected  = errors.New("access token could not be retrieved")
)
