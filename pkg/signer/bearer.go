package signer

import (
	"net/http"
	"strings"
)

// BearerTokenType is the canonical OAuth2 bearer scheme.
const BearerTokenType = "Bearer"

// NormalizeBearer standardizes the case of a token type to "Bearer".
// Providers such as Moves serve up a lower-case "bearer" token type but only
// accept capitalized "Bearer" authorization headers. An absent token type is
// assumed to be a bearer token.
func NormalizeBearer(tokenType string) string {
	if tokenType == "" || strings.EqualFold(tokenType, BearerTokenType) {
		return BearerTokenType
	}
	return tokenType
}

// AuthorizationHeader renders the Authorization header value for an access
// token, normalizing the token type case.
func AuthorizationHeader(tokenType, accessToken string) string {
	return NormalizeBearer(tokenType) + " " + accessToken
}

// SetAuthorization attaches the normalized Authorization header to an
// outbound data-fetch request.
func SetAuthorization(req *http.Request, tokenType, accessToken string) {
	req.Header.Set("Authorization", AuthorizationHeader(tokenType, accessToken))
}
