package shim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/shimkit/pkg/logger"
	"github.com/dmitrymomot/shimkit/pkg/signer"
)

// OAuth2Settings is the immutable per-provider configuration for an OAuth
// 2.0 shim.
type OAuth2Settings struct {
	Key          string
	ClientID     string
	ClientSecret string

	AuthorizeURL string
	TokenURL     string
	Scopes       []string

	// TriggerURL is a minimal authenticated data probe. Many providers
	// cannot be distinguished as "needs authorization" versus "authorized"
	// except by trying an authenticated call.
	TriggerURL string

	// OfflineAccess requests a refresh token where the provider supports it.
	OfflineAccess bool
}

// oauth2Interim is the serialized pending token-request context stored in
// PendingAuthorization.Interim. Its shape is private to this adapter.
type oauth2Interim struct {
	RedirectURI string   `json:"redirect_uri"`
	Scopes      []string `json:"scopes"`
}

// OAuth2Shim drives the OAuth 2.0 authorization-code state machine for one
// provider on top of golang.org/x/oauth2.
type OAuth2Shim struct {
	settings    OAuth2Settings
	credentials CredentialStore
	server      ServerConfig
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ Shim = (*OAuth2Shim)(nil)

// NewOAuth2Shim builds an OAuth2 adapter from provider settings.
func NewOAuth2Shim(settings OAuth2Settings, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth2Shim {
	o := defaultAdapterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &OAuth2Shim{
		settings:    settings,
		credentials: credentials,
		server:      server,
		httpClient:  o.httpClient,
		logger:      o.logger,
	}
}

func (s *OAuth2Shim) Key() string { return s.settings.Key }

func (s *OAuth2Shim) Configured() bool {
	return s.settings.ClientID != "" && s.settings.ClientSecret != ""
}

// Begin probes whether the user's latest credential still authenticates. A
// successful probe short-circuits with AlreadyAuthorized; anything else is a
// redirect-required outcome carrying the authorization URL and the serialized
// pending token-request context.
func (s *OAuth2Shim) Begin(ctx context.Context, userID, clientRedirectURL string) (*BeginAuthorization, error) {
	if !s.Configured() {
		return nil, ErrShimNotConfigured
	}

	if cred, err := s.credentials.FindLatest(ctx, userID, s.settings.Key); err == nil && cred.AccessToken != "" {
		if s.probe(ctx, cred) {
			return &BeginAuthorization{AlreadyAuthorized: true}, nil
		}
	}

	stateToken := newStateToken()
	redirectURI := s.server.CallbackURL(s.settings.Key, stateToken)
	conf := s.oauthConfig(redirectURI)

	var authCodeOpts []oauth2.AuthCodeOption
	if s.settings.OfflineAccess {
		authCodeOpts = append(authCodeOpts, oauth2.AccessTypeOffline)
	}

	interim, err := json.Marshal(oauth2Interim{RedirectURI: redirectURI, Scopes: s.settings.Scopes})
	if err != nil {
		return nil, fmt.Errorf("encode interim context: %w", err)
	}

	s.logger.InfoContext(ctx, "oauth2 authorization initiated",
		logger.ShimKey(s.settings.Key), logger.UserID(userID))

	return &BeginAuthorization{
		AuthorizationURL: conf.AuthCodeURL(stateToken, authCodeOpts...),
		Pending: &PendingAuthorization{
			StateToken:        stateToken,
			UserID:            userID,
			ShimKey:           s.settings.Key,
			Interim:           interim,
			ClientRedirectURL: clientRedirectURL,
			CreatedAt:         nowUTC(),
		},
	}, nil
}

// Complete classifies provider denials, then exchanges the authorization
// code for an access token. A grant that succeeds is authoritative: a
// post-grant probe failure does not downgrade the outcome.
func (s *OAuth2Shim) Complete(ctx context.Context, params url.Values, pending *PendingAuthorization) (*AuthorizationResult, error) {
	if !s.Configured() {
		return nil, ErrShimNotConfigured
	}

	if errCode := params.Get("error"); errCode != "" {
		details := params.Get("error_description")
		if details == "" {
			details = errCode
		}
		if errCode == "access_denied" {
			return Denied(details), nil
		}
		return Errorf("%s", details), nil
	}

	code := params.Get("code")
	if code == "" {
		return Errorf("callback carries no authorization code"), nil
	}

	var interim oauth2Interim
	if err := json.Unmarshal(pending.Interim, &interim); err != nil {
		return nil, fmt.Errorf("decode interim context: %w", err)
	}

	conf := s.oauthConfig(interim.RedirectURI)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		switch {
		case errors.As(err, &retrieveErr):
			return Errorf("token exchange failed: %s", strings.TrimSpace(string(retrieveErr.Body))), nil
		case strings.Contains(err.Error(), "missing access_token"):
			// The provider answered the exchange without granting a token.
			return Errorf("Did not receive approval"), nil
		default:
			return Errorf("token exchange failed: %v", err), nil
		}
	}
	if token.AccessToken == "" {
		return Errorf("Did not receive approval"), nil
	}

	credential := newCredential(pending)
	credential.AccessToken = token.AccessToken
	credential.RefreshToken = token.RefreshToken
	credential.TokenType = signer.NormalizeBearer(token.TokenType)
	credential.ExpiresAt = token.Expiry

	// The grant is the authoritative success signal; a failed data probe
	// here only means the probe failed, not the authorization.
	if s.settings.TriggerURL != "" && !s.probe(ctx, credential) {
		s.logger.WarnContext(ctx, "post-grant data probe failed",
			logger.ShimKey(s.settings.Key), logger.UserID(pending.UserID))
	}

	s.logger.InfoContext(ctx, "oauth2 authorization completed",
		logger.ShimKey(s.settings.Key), logger.UserID(pending.UserID))

	return Authorized(credential), nil
}

// probe performs the minimal authenticated trigger call. It reports true only
// when the provider accepts the credential.
func (s *OAuth2Shim) probe(ctx context.Context, credential *AccessCredential) bool {
	if s.settings.TriggerURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.settings.TriggerURL, nil)
	if err != nil {
		return false
	}
	signer.SetAuthorization(req, credential.TokenType, credential.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < http.StatusBadRequest
}

func (s *OAuth2Shim) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.settings.ClientID,
		ClientSecret: s.settings.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       s.settings.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.settings.AuthorizeURL,
			TokenURL: s.settings.TokenURL,
		},
	}
}
