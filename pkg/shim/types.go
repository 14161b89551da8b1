package shim

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccessCredential is an authorized, usable grant for one (user, shim) pair.
// Multiple credentials may coexist for the same pair; the active one is the
// latest by CreatedAt. Deauthorization removes all of them.
type AccessCredential struct {
	ID         uuid.UUID
	UserID     string
	ShimKey    string
	StateToken string // audit link to the authorization that produced this grant

	// OAuth1 secret material.
	AccessToken string
	TokenSecret string

	// OAuth2 secret material. AccessToken is shared with OAuth1 above.
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time

	// Extra holds provider-specific enrichment extracted from the callback,
	// e.g. an external account identifier.
	Extra map[string]string

	CreatedAt time.Time
}

// PendingAuthorization is one in-flight authorization attempt, keyed by an
// opaque unguessable state token. It is created by Begin, consumed exactly
// once by Complete, and eligible for expiry after a bounded window.
type PendingAuthorization struct {
	StateToken string
	UserID     string
	ShimKey    string

	// Interim is a protocol-specific opaque payload needed to complete the
	// exchange. Its internal structure is private to the adapter that
	// produced it.
	Interim []byte

	// ClientRedirectURL, when set, is where the HTTP layer should redirect
	// the user's browser after a successful completion.
	ClientRedirectURL string

	CreatedAt time.Time
}

// BeginAuthorization is the outcome of starting an authorization flow.
// Either the user already holds a usable grant, or an authorization URL plus
// a pending record to persist.
type BeginAuthorization struct {
	AlreadyAuthorized bool
	AuthorizationURL  string
	Pending           *PendingAuthorization
}

// Outcome tags the terminal result of a completed authorization attempt.
type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeDenied     Outcome = "denied"
	OutcomeError      Outcome = "error"
)

// AuthorizationResult is the uniform terminal outcome reported to the
// caller. Denied means the user declined at the provider; Error covers
// protocol and transport failures.
type AuthorizationResult struct {
	Outcome    Outcome
	Credential *AccessCredential
	Details    string

	// ClientRedirectURL is carried over from the pending authorization so
	// the HTTP layer can redirect instead of returning the result body.
	ClientRedirectURL string
}

// Authorized builds a successful result carrying the new credential.
func Authorized(credential *AccessCredential) *AuthorizationResult {
	return &AuthorizationResult{Outcome: OutcomeAuthorized, Credential: credential}
}

// Denied builds a user-declined result.
func Denied(details string) *AuthorizationResult {
	return &AuthorizationResult{Outcome: OutcomeDenied, Details: details}
}

// Errorf builds an error result with a descriptive message.
func Errorf(format string, args ...any) *AuthorizationResult {
	return &AuthorizationResult{Outcome: OutcomeError, Details: fmt.Sprintf(format, args...)}
}

// ServerConfig carries the externally visible base URL used to build
// per-shim callback URLs embedding the state token.
type ServerConfig struct {
	CallbackBaseURL string `env:"SHIM_CALLBACK_BASE_URL" envDefault:"http://localhost:8080"` // Base URL the provider redirects back to.
}

// CallbackURL builds the redirect target for a shim's authorization callback.
func (c ServerConfig) CallbackURL(shimKey, stateToken string) string {
	return fmt.Sprintf("%s/authorize/%s/callback?state=%s",
		strings.TrimSuffix(c.CallbackBaseURL, "/"), shimKey, url.QueryEscape(stateToken))
}

// newCredential seeds a credential from the pending authorization that
// produced it, keeping the audit link via the state token.
func newCredential(pending *PendingAuthorization) *AccessCredential {
	return &AccessCredential{
		ID:         uuid.New(),
		UserID:     pending.UserID,
		ShimKey:    pending.ShimKey,
		StateToken: pending.StateToken,
		CreatedAt:  nowUTC(),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// newStateToken generates the opaque correlation key for one authorization
// attempt. UUIDs are drawn from crypto/rand, so concurrent Begin calls never
// collide in practice; the stores still reject duplicates outright.
func newStateToken() string {
	return uuid.NewString()
}
