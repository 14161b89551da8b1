package shim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeOAuth2Settings(baseURL string) OAuth2Settings {
	return OAuth2Settings{
		Key:          "acme2",
		ClientID:     "acme-client",
		ClientSecret: "acme-secret",
		AuthorizeURL: baseURL + "/authorize",
		TokenURL:     baseURL + "/token",
		Scopes:       []string{"activity", "sleep"},
	}
}

func TestOAuth2Shim_Begin(t *testing.T) {
	t.Parallel()

	t.Run("returns an authorization url carrying the state", func(t *testing.T) {
		t.Parallel()

		s := NewOAuth2Shim(acmeOAuth2Settings("http://provider.example"), NewMemoryCredentialStore(), testServerConfig())

		begin, err := s.Begin(context.Background(), "user-1", "http://app.example/done")
		require.NoError(t, err)
		require.False(t, begin.AlreadyAuthorized)
		require.NotNil(t, begin.Pending)

		parsed, err := url.Parse(begin.AuthorizationURL)
		require.NoError(t, err)
		q := parsed.Query()
		assert.Equal(t, begin.Pending.StateToken, q.Get("state"))
		assert.Equal(t, "acme-client", q.Get("client_id"))
		assert.Equal(t, "activity sleep", q.Get("scope"))
		assert.Contains(t, q.Get("redirect_uri"), "/authorize/acme2/callback")

		assert.Equal(t, "http://app.example/done", begin.Pending.ClientRedirectURL)

		var interim oauth2Interim
		require.NoError(t, json.Unmarshal(begin.Pending.Interim, &interim))
		assert.Equal(t, q.Get("redirect_uri"), interim.RedirectURI)
	})

	t.Run("requests offline access when configured", func(t *testing.T) {
		t.Parallel()

		settings := acmeOAuth2Settings("http://provider.example")
		settings.OfflineAccess = true
		s := NewOAuth2Shim(settings, NewMemoryCredentialStore(), testServerConfig())

		begin, err := s.Begin(context.Background(), "user-1", "")
		require.NoError(t, err)
		assert.Contains(t, begin.AuthorizationURL, "access_type=offline")
	})

	t.Run("short-circuits when the trigger probe succeeds", func(t *testing.T) {
		t.Parallel()

		var probed bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			probed = true
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		settings := acmeOAuth2Settings(srv.URL)
		settings.TriggerURL = srv.URL + "/user"

		credentials := NewMemoryCredentialStore()
		require.NoError(t, credentials.Save(context.Background(), &AccessCredential{
			UserID: "user-1", ShimKey: "acme2",
			AccessToken: "tok", TokenType: "Bearer",
			CreatedAt: time.Now(),
		}))

		s := NewOAuth2Shim(settings, credentials, testServerConfig())

		begin, err := s.Begin(context.Background(), "user-1", "")
		require.NoError(t, err)
		assert.True(t, begin.AlreadyAuthorized)
		assert.True(t, probed)
	})

	t.Run("redirects again when the trigger probe is rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		settings := acmeOAuth2Settings(srv.URL)
		settings.TriggerURL = srv.URL + "/user"

		credentials := NewMemoryCredentialStore()
		require.NoError(t, credentials.Save(context.Background(), &AccessCredential{
			UserID: "user-1", ShimKey: "acme2",
			AccessToken: "stale", TokenType: "Bearer",
			CreatedAt: time.Now(),
		}))

		s := NewOAuth2Shim(settings, credentials, testServerConfig())

		begin, err := s.Begin(context.Background(), "user-1", "")
		require.NoError(t, err)
		assert.False(t, begin.AlreadyAuthorized)
		assert.NotEmpty(t, begin.AuthorizationURL)
	})

	t.Run("refuses to begin without client credentials", func(t *testing.T) {
		t.Parallel()

		s := NewOAuth2Shim(OAuth2Settings{Key: "acme2"}, NewMemoryCredentialStore(), testServerConfig())

		assert.False(t, s.Configured())
		_, err := s.Begin(context.Background(), "user-1", "")
		assert.ErrorIs(t, err, ErrShimNotConfigured)
	})
}

func oauth2Pending(t *testing.T, s *OAuth2Shim) *PendingAuthorization {
	t.Helper()
	begin, err := s.Begin(context.Background(), "user-1", "")
	require.NoError(t, err)
	return begin.Pending
}

func TestOAuth2Shim_Complete(t *testing.T) {
	t.Parallel()

	t.Run("exchanges the code and normalizes the token type", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authcode", r.Form.Get("code"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","refresh_token":"ref","expires_in":3600}`))
		}))
		t.Cleanup(srv.Close)

		s := NewOAuth2Shim(acmeOAuth2Settings(srv.URL), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("code", "authcode")
		params.Set("state", pending.StateToken)

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)

		require.Equal(t, OutcomeAuthorized, result.Outcome)
		require.NotNil(t, result.Credential)
		assert.Equal(t, "tok", result.Credential.AccessToken)
		assert.Equal(t, "ref", result.Credential.RefreshToken)
		assert.Equal(t, "Bearer", result.Credential.TokenType)
		assert.False(t, result.Credential.ExpiresAt.IsZero())
	})

	t.Run("classifies access_denied as a denial", func(t *testing.T) {
		t.Parallel()

		s := NewOAuth2Shim(acmeOAuth2Settings("http://provider.example"), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("error", "access_denied")
		params.Set("error_description", "user said no")

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDenied, result.Outcome)
		assert.Equal(t, "user said no", result.Details)
		assert.Nil(t, result.Credential)
	})

	t.Run("classifies other provider errors as errors", func(t *testing.T) {
		t.Parallel()

		s := NewOAuth2Shim(acmeOAuth2Settings("http://provider.example"), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("error", "temporarily_unavailable")

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Equal(t, "temporarily_unavailable", result.Details)
	})

	t.Run("treats a missing code as an error outcome", func(t *testing.T) {
		t.Parallel()

		s := NewOAuth2Shim(acmeOAuth2Settings("http://provider.example"), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		result, err := s.Complete(context.Background(), url.Values{}, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeError, result.Outcome)
	})

	t.Run("reports missing approval when no token is granted", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
		}))
		t.Cleanup(srv.Close)

		s := NewOAuth2Shim(acmeOAuth2Settings(srv.URL), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("code", "authcode")

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Equal(t, "Did not receive approval", result.Details)
	})

	t.Run("surfaces the provider body when the exchange is rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		t.Cleanup(srv.Close)

		s := NewOAuth2Shim(acmeOAuth2Settings(srv.URL), NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("code", "authcode")

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Contains(t, result.Details, "invalid_grant")
	})

	t.Run("a failed post-grant probe does not downgrade the outcome", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/token" {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer"}`))
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)

		settings := acmeOAuth2Settings(srv.URL)
		settings.TriggerURL = srv.URL + "/user"

		s := NewOAuth2Shim(settings, NewMemoryCredentialStore(), testServerConfig())
		pending := oauth2Pending(t, s)

		params := url.Values{}
		params.Set("code", "authcode")

		result, err := s.Complete(context.Background(), params, pending)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAuthorized, result.Outcome)
	})
}
