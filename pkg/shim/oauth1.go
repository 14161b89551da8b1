package shim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/shimkit/pkg/logger"
	"github.com/dmitrymomot/shimkit/pkg/signer"
)

// OAuth1Settings is the immutable per-provider configuration for an OAuth
// 1.0a shim. Constructed once from external configuration; reconfiguration
// replaces the whole adapter.
type OAuth1Settings struct {
	Key          string
	ClientID     string
	ClientSecret string

	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string

	// Some providers require POST instead of GET for the token steps, which
	// changes how requests are signed (Authorization header vs query
	// string). Defaults to GET.
	RequestTokenMethod string
	AccessTokenMethod  string

	// PreEncodeCallback marks providers that require the oauth_callback
	// value percent-encoded before signing.
	PreEncodeCallback bool

	// EnrichCredential, when set, lets a provider pull additional fields
	// out of the callback parameters into the credential before it is
	// returned, e.g. an external account identifier.
	EnrichCredential func(params url.Values, credential *AccessCredential)
}

// oauth1Interim is the opaque payload stored in PendingAuthorization.Interim
// for OAuth1 flows: the unauthorized request token and its secret.
type oauth1Interim struct {
	Token       string `json:"token"`
	TokenSecret string `json:"token_secret"`
}

// OAuth1Shim drives the OAuth 1.0a request-token / access-token state
// machine for one provider.
type OAuth1Shim struct {
	settings    OAuth1Settings
	signer      *signer.OAuth1
	credentials CredentialStore
	server      ServerConfig
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ Shim = (*OAuth1Shim)(nil)

// NewOAuth1Shim builds an OAuth1 adapter from provider settings. A shim
// without client credentials is constructible but reports Configured false
// and refuses to begin authorization.
func NewOAuth1Shim(settings OAuth1Settings, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth1Shim {
	o := defaultAdapterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &OAuth1Shim{
		settings:    settings,
		credentials: credentials,
		server:      server,
		httpClient:  o.httpClient,
		logger:      o.logger,
	}
	if settings.ClientID != "" && settings.ClientSecret != "" {
		// Construction only fails on empty credentials, checked above.
		s.signer, _ = signer.NewOAuth1(settings.ClientID, settings.ClientSecret)
	}
	return s
}

func (s *OAuth1Shim) Key() string { return s.settings.Key }

func (s *OAuth1Shim) Configured() bool { return s.signer != nil }

// Begin requests an unauthorized request token from the provider and returns
// the signed authorize URL the user must visit. If the user already holds a
// usable credential no network call is made.
func (s *OAuth1Shim) Begin(ctx context.Context, userID, clientRedirectURL string) (*BeginAuthorization, error) {
	if !s.Configured() {
		return nil, ErrShimNotConfigured
	}

	if cred, err := s.credentials.FindLatest(ctx, userID, s.settings.Key); err == nil &&
		cred.AccessToken != "" && cred.TokenSecret != "" {
		return &BeginAuthorization{AlreadyAuthorized: true}, nil
	}

	stateToken := newStateToken()
	callbackURL := s.server.CallbackURL(s.settings.Key, stateToken)

	callback := signer.Param{Key: "oauth_callback", Value: callbackURL}
	if s.settings.PreEncodeCallback {
		callback.Value = url.QueryEscape(callbackURL)
		callback.PreEncoded = true
	}

	values, err := s.tokenExchange(ctx, s.requestTokenMethod(), s.settings.RequestTokenURL, "", "", callback)
	if err != nil {
		return nil, fmt.Errorf("initiate authorization with %s: %w", s.settings.Key, err)
	}

	token := values.Get("oauth_token")
	tokenSecret := values.Get("oauth_token_secret")
	if tokenSecret == "" {
		// The provider rejected either the callback or the client
		// credentials; there is nothing to authorize.
		return nil, fmt.Errorf("initiate authorization with %s: %w", s.settings.Key, ErrRequestTokenRejected)
	}

	authorizeURL, err := s.signer.SignURL(s.settings.AuthorizeURL, token, tokenSecret)
	if err != nil {
		return nil, fmt.Errorf("sign authorize url for %s: %w", s.settings.Key, err)
	}

	interim, err := json.Marshal(oauth1Interim{Token: token, TokenSecret: tokenSecret})
	if err != nil {
		return nil, fmt.Errorf("encode interim credential: %w", err)
	}

	s.logger.InfoContext(ctx, "oauth1 authorization initiated",
		logger.ShimKey(s.settings.Key), logger.UserID(userID))

	return &BeginAuthorization{
		AuthorizationURL: authorizeURL,
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

// Complete exchanges the request token plus the user's verifier for an
// access token. An access token without a token secret is never reported as
// success.
func (s *OAuth1Shim) Complete(ctx context.Context, params url.Values, pending *PendingAuthorization) (*AuthorizationResult, error) {
	if !s.Configured() {
		return nil, ErrShimNotConfigured
	}

	var interim oauth1Interim
	if err := json.Unmarshal(pending.Interim, &interim); err != nil {
		return nil, fmt.Errorf("decode interim credential: %w", err)
	}

	requestToken := params.Get("oauth_token")
	verifier := params.Get("oauth_verifier")
	if requestToken != "" && requestToken != interim.Token {
		return Errorf("callback request token does not match the initiated flow"), nil
	}

	values, err := s.tokenExchange(ctx, s.accessTokenMethod(), s.settings.AccessTokenURL,
		interim.Token, interim.TokenSecret, signer.Param{Key: "oauth_verifier", Value: verifier})
	if err != nil {
		return Errorf("exchange request token with %s: %v", s.settings.Key, err), nil
	}

	accessToken := values.Get("oauth_token")
	accessTokenSecret := values.Get("oauth_token_secret")
	if accessToken == "" || accessTokenSecret == "" {
		return Errorf("%v", ErrAccessTokenRejected), nil
	}

	credential := newCredential(pending)
	credential.AccessToken = accessToken
	credential.TokenSecret = accessTokenSecret
	if s.settings.EnrichCredential != nil {
		s.settings.EnrichCredential(params, credential)
	}

	s.logger.InfoContext(ctx, "oauth1 authorization completed",
		logger.ShimKey(s.settings.Key), logger.UserID(pending.UserID))

	return Authorized(credential), nil
}

// tokenExchange performs one signed call against a token endpoint and parses
// the form-encoded response. The response body is closed on every path.
func (s *OAuth1Shim) tokenExchange(ctx context.Context, method, endpoint, token, tokenSecret string, extra ...signer.Param) (url.Values, error) {
	var req *http.Request
	var err error

	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
		if err := s.signer.SignRequest(req, token, tokenSecret, extra...); err != nil {
			return nil, err
		}
	} else {
		signedURL, err := s.signer.SignURL(endpoint, token, tokenSecret, extra...)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	return values, nil
}

func (s *OAuth1Shim) requestTokenMethod() string {
	if s.settings.RequestTokenMethod != "" {
		return s.settings.RequestTokenMethod
	}
	return http.MethodGet
}

func (s *OAuth1Shim) accessTokenMethod() string {
	if s.settings.AccessTokenMethod != "" {
		return s.settings.AccessTokenMethod
	}
	return http.MethodGet
}
