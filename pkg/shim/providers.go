package shim

import (
	"net/http"
	"net/url"
)

// Shim keys for the bundled providers.
const (
	KeyFitbit    = "fitbit"
	KeyWithings  = "withings"
	KeyFatsecret = "fatsecret"
	KeyRunkeeper = "runkeeper"
	KeyJawbone   = "jawbone"
	KeyMoves     = "moves"
)

// FitbitConfig holds the Fitbit client credentials.
type FitbitConfig struct {
	ClientID     string `env:"FITBIT_CLIENT_ID"`
	ClientSecret string `env:"FITBIT_CLIENT_SECRET"`
}

// NewFitbitShim creates the Fitbit OAuth1 adapter. Fitbit requires POST
// semantics for both token steps.
func NewFitbitShim(cfg FitbitConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth1Shim {
	return NewOAuth1Shim(OAuth1Settings{
		Key:                KeyFitbit,
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		RequestTokenURL:    "https://api.fitbit.com/oauth/request_token",
		AuthorizeURL:       "https://www.fitbit.com/oauth/authenticate",
		AccessTokenURL:     "https://api.fitbit.com/oauth/access_token",
		RequestTokenMethod: http.MethodPost,
		AccessTokenMethod:  http.MethodPost,
	}, credentials, server, opts...)
}

// WithingsConfig holds the Withings client credentials.
type WithingsConfig struct {
	ClientID     string `env:"WITHINGS_CLIENT_ID"`
	ClientSecret string `env:"WITHINGS_CLIENT_SECRET"`
}

// NewWithingsShim creates the Withings OAuth1 adapter. Withings reports the
// external account identifier as a "userid" callback parameter, which later
// data-fetch calls need, so it is captured on the credential.
func NewWithingsShim(cfg WithingsConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth1Shim {
	return NewOAuth1Shim(OAuth1Settings{
		Key:             KeyWithings,
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		RequestTokenURL: "https://oauth.withings.com/account/request_token",
		AuthorizeURL:    "https://oauth.withings.com/account/authorize",
		AccessTokenURL:  "https://oauth.withings.com/account/access_token",
		EnrichCredential: func(params url.Values, credential *AccessCredential) {
			if id := params.Get("userid"); id != "" {
				if credential.Extra == nil {
					credential.Extra = make(map[string]string, 1)
				}
				credential.Extra["userid"] = id
			}
		},
	}, credentials, server, opts...)
}

// FatsecretConfig holds the FatSecret client credentials.
type FatsecretConfig struct {
	ClientID     string `env:"FATSECRET_CLIENT_ID"`
	ClientSecret string `env:"FATSECRET_CLIENT_SECRET"`
}

// NewFatsecretShim creates the FatSecret OAuth1 adapter. FatSecret requires
// the oauth_callback value percent-encoded before signing.
func NewFatsecretShim(cfg FatsecretConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth1Shim {
	return NewOAuth1Shim(OAuth1Settings{
		Key:               KeyFatsecret,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		RequestTokenURL:   "http://www.fatsecret.com/oauth/request_token",
		AuthorizeURL:      "http://www.fatsecret.com/oauth/authorize",
		AccessTokenURL:    "http://www.fatsecret.com/oauth/access_token",
		PreEncodeCallback: true,
	}, credentials, server, opts...)
}

// RunkeeperConfig holds the RunKeeper client credentials.
type RunkeeperConfig struct {
	ClientID     string `env:"RUNKEEPER_CLIENT_ID"`
	ClientSecret string `env:"RUNKEEPER_CLIENT_SECRET"`
}

// NewRunkeeperShim creates the RunKeeper OAuth2 adapter.
func NewRunkeeperShim(cfg RunkeeperConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth2Shim {
	return NewOAuth2Shim(OAuth2Settings{
		Key:          KeyRunkeeper,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthorizeURL: "https://runkeeper.com/apps/authorize",
		TokenURL:     "https://runkeeper.com/apps/token",
		TriggerURL:   "https://api.runkeeper.com/user",
	}, credentials, server, opts...)
}

// MovesConfig holds the Moves client credentials.
type MovesConfig struct {
	ClientID     string `env:"MOVES_CLIENT_ID"`
	ClientSecret string `env:"MOVES_CLIENT_SECRET"`
}

// NewMovesShim creates the Moves OAuth2 adapter. Moves issues a lower-case
// "bearer" token type but only accepts capitalized headers, which the bearer
// normalization handles.
func NewMovesShim(cfg MovesConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth2Shim {
	return NewOAuth2Shim(OAuth2Settings{
		Key:          KeyMoves,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthorizeURL: "https://api.moves-app.com/oauth/v1/authorize",
		TokenURL:     "https://api.moves-app.com/oauth/v1/access_token",
		Scopes:       []string{"activity", "location"},
		TriggerURL:   "https://api.moves-app.com/api/1.1/user/summary/daily",
	}, credentials, server, opts...)
}

// JawboneConfig holds the Jawbone client credentials.
type JawboneConfig struct {
	ClientID     string `env:"JAWBONE_CLIENT_ID"`
	ClientSecret string `env:"JAWBONE_CLIENT_SECRET"`
}

// NewJawboneShim creates the Jawbone UP OAuth2 adapter.
func NewJawboneShim(cfg JawboneConfig, credentials CredentialStore, server ServerConfig, opts ...AdapterOption) *OAuth2Shim {
	return NewOAuth2Shim(OAuth2Settings{
		Key:          KeyJawbone,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthorizeURL: "https://jawbone.com/auth/oauth2/auth",
		TokenURL:     "https://jawbone.com/auth/oauth2/token",
		Scopes:       []string{"extended_read", "weight_read", "cardiac_read", "meal_read", "move_read", "sleep_read"},
		TriggerURL:   "https://jawbone.com/nudge/api/v.1.1/users/@me/body_events",
	}, credentials, server, opts...)
}
