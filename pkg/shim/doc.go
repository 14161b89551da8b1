// Package shim drives end users through third-party OAuth 1.0a and OAuth 2.0
// authorization flows and persists the resulting access credentials so later
// data-fetch calls can be authenticated transparently.
//
// Each third-party integration ("shim") encapsulates one provider's
// authorization dance behind the Shim interface: Begin produces a provider
// authorization URL plus a PendingAuthorization correlated by an unguessable
// state token; Complete consumes the provider's redirect callback and
// exchanges the interim state for a long-lived AccessCredential.
//
// # Architecture
//
//   - Shim is the polymorphic provider adapter contract. OAuth1Shim and
//     OAuth2Shim implement it for the two protocol families; per-provider
//     constructors (NewFitbitShim, NewWithingsShim, ...) bind endpoint
//     settings and protocol quirks.
//   - Registry resolves a shim key to its adapter and reports which shims
//     are usable (have client credentials configured).
//   - Orchestrator is the component the HTTP layer calls. It owns the two
//     stores, enforces single-use state tokens, and turns adapter results
//     into a uniform AuthorizationResult. It performs no network I/O itself.
//   - CredentialStore and PendingAuthorizationStore abstract persistence;
//     in-memory implementations back tests and single-node development,
//     pkg/mongostore and pkg/redisstore back production.
//
// # Flow
//
// Begin resolves the adapter, short-circuits when a usable grant already
// exists, otherwise stores a PendingAuthorization keyed by a generated state
// token and returns the provider authorization URL. The provider later
// redirects the user's browser to a callback carrying that state token.
// Complete looks the pending record up by state token (the sole replay/CSRF
// defense), deletes it so the token is single-use, delegates the token
// exchange to the adapter, and persists the credential only on an Authorized
// outcome.
//
// Multiple credentials may accumulate for a (user, shim) pair; the active
// one is the latest by creation time. Deauthorize removes them all.
package shim
