// Package signer produces the exact bytes and headers third-party providers
// expect on authenticated requests.
//
// Two concerns live here:
//
//   - OAuth 1.0a request signing (RFC 5849, HMAC-SHA1): signature base string
//     construction, parameter normalization, and either query-string or
//     Authorization-header output depending on whether a provider wants GET or
//     POST semantics for its token endpoints.
//   - OAuth 2.0 bearer token type normalization: some providers issue a
//     lower-case "bearer" token type but reject anything other than a
//     capitalized "Bearer" scheme on subsequent calls.
//
// The OAuth1 signer is stateless apart from its client credentials. Nonce and
// timestamp generation are injectable so signatures can be verified against
// recorded provider exchanges in tests.
//
// Signing failures indicate misconfiguration (missing client credentials,
// missing token secret, malformed URLs) and are returned as errors, never
// silently degraded.
package signer
