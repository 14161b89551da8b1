package shim

import (
	"context"
	"net/url"
)

// Shim is the per-provider adapter contract. Implementations encapsulate one
// provider's endpoints, client credentials, and protocol variant behind the
// two operations every provider must support.
type Shim interface {
	// Key returns the unique string identifier for the shim
	// ("fitbit", "withings", ...).
	Key() string

	// Configured reports whether client credentials are present. Unconfigured
	// shims may be registered but are not usable.
	Configured() bool

	// Begin starts an authorization attempt for the user. It either
	// short-circuits with AlreadyAuthorized when a usable grant exists, or
	// returns the provider authorization URL plus the pending record the
	// orchestrator must persist.
	Begin(ctx context.Context, userID, clientRedirectURL string) (*BeginAuthorization, error)

	// Complete exchanges the interim state carried by pending for a
	// long-lived credential, using the provider's callback parameters.
	// Protocol-level failures (denial, malformed tokens, transport errors)
	// are reported through the result, not the error.
	Complete(ctx context.Context, params url.Values, pending *PendingAuthorization) (*AuthorizationResult, error)
}

// CredentialStore persists access credentials keyed by (user, shim), ordered
// by creation time so the most recent grant wins.
type CredentialStore interface {
	// FindLatest returns the most recently created credential for the pair,
	// or ErrCredentialNotFound.
	FindLatest(ctx context.Context, userID, shimKey string) (*AccessCredential, error)

	// FindAll returns every credential for the pair, newest first.
	FindAll(ctx context.Context, userID, shimKey string) ([]*AccessCredential, error)

	Save(ctx context.Context, credential *AccessCredential) error
	Delete(ctx context.Context, credential *AccessCredential) error
}

// PendingAuthorizationStore persists in-flight authorization attempts keyed
// by state token. Records are short-lived and TTL-eligible.
type PendingAuthorizationStore interface {
	// Save stores a new pending authorization. A colliding state token is
	// rejected with ErrStateConflict, never silently overwritten.
	Save(ctx context.Context, pending *PendingAuthorization) error

	// FindByStateToken returns the pending authorization for the token, or
	// ErrNoPendingAuthorization.
	FindByStateToken(ctx context.Context, stateToken string) (*PendingAuthorization, error)

	// Delete removes a pending record, enforcing single-use state tokens.
	// Deleting a record that is already gone returns
	// ErrNoPendingAuthorization so that concurrent consumers of the same
	// state token cannot both win.
	Delete(ctx context.Context, pending *PendingAuthorization) error
}
