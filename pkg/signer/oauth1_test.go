package signer

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedOAuth1(t *testing.T, clientID, clientSecret, nonce string, ts int64) *OAuth1 {
	t.Helper()
	s, err := NewOAuth1(clientID, clientSecret,
		WithNonceFunc(func() string { return nonce }),
		WithClock(func() time.Time { return time.Unix(ts, 0) }),
	)
	require.NoError(t, err)
	return s
}

func TestNewOAuth1(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing client credentials", func(t *testing.T) {
		t.Parallel()

		_, err := NewOAuth1("", "secret")
		assert.ErrorIs(t, err, ErrMissingClientCredentials)

		_, err = NewOAuth1("client", "")
		assert.ErrorIs(t, err, ErrMissingClientCredentials)
	})

	t.Run("generates unique nonces by default", func(t *testing.T) {
		t.Parallel()

		s, err := NewOAuth1("client", "secret")
		require.NoError(t, err)
		assert.NotEqual(t, s.nonce(), s.nonce())
	})
}

// Reference vector from a recorded provider exchange, documented in the
// Twitter API signing guide.
func TestOAuth1_SignRequest_ReferenceSignature(t *testing.T) {
	t.Parallel()

	s := fixedOAuth1(t,
		"xvz1evFS4wEEPTGEFPHBog",
		"kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		"kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		1318622958,
	)

	form := url.Values{}
	form.Set("status", "Hello Ladies + Gentlemen, a signed OAuth request!")
	form.Set("include_entities", "true")

	req, err := http.NewRequest(http.MethodPost,
		"https://api.twitter.com/1/statuses/update.json",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	err = s.SignRequest(req,
		"370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE")
	require.NoError(t, err)

	header := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "OAuth "))

	m := regexp.MustCompile(`oauth_signature="([^"]+)"`).FindStringSubmatch(header)
	require.Len(t, m, 2)
	sig, err := url.QueryUnescape(m[1])
	require.NoError(t, err)
	assert.Equal(t, "tnnArxj06cWHq44gCs1OSKk/jLY=", sig)
}

func TestOAuth1_SignRequest_BodyRestored(t *testing.T) {
	t.Parallel()

	s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

	body := "status=hello&include_entities=true"
	req, err := http.NewRequest(http.MethodPost, "https://example.com/token", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	require.NoError(t, s.SignRequest(req, "", ""))

	buf := make([]byte, len(body))
	n, _ := req.Body.Read(buf)
	assert.Equal(t, body, string(buf[:n]))
}

func TestSignatureBaseString(t *testing.T) {
	t.Parallel()

	// RFC 5849 section 3.4.1.1 example.
	u, err := url.Parse("http://example.com/request?b5=%3D%253D&a3=a&c%40=&a2=r%20b")
	require.NoError(t, err)

	params := queryParams(u.Query())
	params = append(params,
		Param{Key: "a3", Value: "2 q"},
		Param{Key: "c2", Value: ""},
		Param{Key: paramConsumerKey, Value: "9djdj82h48djs9d2"},
		Param{Key: paramToken, Value: "kkk9d7dh3k39sjv7"},
		Param{Key: paramSignatureMethod, Value: signatureMethodHMACSHA1},
		Param{Key: paramTimestamp, Value: "137131201"},
		Param{Key: paramNonce, Value: "7d8f3e4a"},
	)

	got := signatureBaseString(http.MethodPost, u, params)

	want := "POST&http%3A%2F%2Fexample.com%2Frequest&a2%3Dr%2520b%26a3%3D2%2520q%26a3%3Da" +
		"%26b5%3D%253D%25253D%26c%2540%3D%26c2%3D%26oauth_consumer_key%3D9djdj82h48djs9d2" +
		"%26oauth_nonce%3D7d8f3e4a%26oauth_signature_method%3DHMAC-SHA1" +
		"%26oauth_timestamp%3D137131201%26oauth_token%3Dkkk9d7dh3k39sjv7"
	assert.Equal(t, want, got)
}

func TestOAuth1_SignURL(t *testing.T) {
	t.Parallel()

	t.Run("appends signed query parameters", func(t *testing.T) {
		t.Parallel()

		s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

		signed, err := s.SignURL("https://provider.example/oauth/request_token", "", "",
			Param{Key: "oauth_callback", Value: "http://localhost:8080/authorize/acme/callback?state=xyz"})
		require.NoError(t, err)

		u, err := url.Parse(signed)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "client", q.Get(paramConsumerKey))
		assert.Equal(t, "nonce", q.Get(paramNonce))
		assert.Equal(t, "1000", q.Get(paramTimestamp))
		assert.Equal(t, signatureMethodHMACSHA1, q.Get(paramSignatureMethod))
		assert.Equal(t, protocolVersion, q.Get(paramVersion))
		assert.NotEmpty(t, q.Get(paramSignature))
		assert.Equal(t, "http://localhost:8080/authorize/acme/callback?state=xyz", q.Get("oauth_callback"))
		// No token on the unauthorized request-token step.
		assert.Empty(t, q.Get(paramToken))
	})

	t.Run("is deterministic for a fixed parameter set", func(t *testing.T) {
		t.Parallel()

		s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

		first, err := s.SignURL("https://provider.example/authorize?extra=1", "tok", "toksecret")
		require.NoError(t, err)
		second, err := s.SignURL("https://provider.example/authorize?extra=1", "tok", "toksecret")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("does not double-encode pre-encoded callback", func(t *testing.T) {
		t.Parallel()

		s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

		encoded := url.QueryEscape("http://localhost:8080/authorize/fatsecret/callback")
		signed, err := s.SignURL("https://provider.example/oauth/request_token", "", "",
			Param{Key: "oauth_callback", Value: encoded, PreEncoded: true})
		require.NoError(t, err)

		assert.Contains(t, signed, "oauth_callback="+encoded)
		assert.NotContains(t, signed, "oauth_callback="+url.QueryEscape(encoded))
	})

	t.Run("rejects token without token secret", func(t *testing.T) {
		t.Parallel()

		s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

		_, err := s.SignURL("https://provider.example/authorize", "tok", "")
		assert.ErrorIs(t, err, ErrMissingTokenSecret)
	})

	t.Run("rejects unparseable url", func(t *testing.T) {
		t.Parallel()

		s := fixedOAuth1(t, "client", "secret", "nonce", 1000)

		_, err := s.SignURL("not-a-url", "", "")
		assert.ErrorIs(t, err, ErrInvalidRequestURL)
	})
}

func TestPercentEncode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"abcABC123":    "abcABC123",
		"-._~":         "-._~",
		"%":            "%25",
		"+":            "%2B",
		"&=*":          "%26%3D%2A",
		" ":            "%20",
		"Ladies + Gentlemen": "Ladies%20%2B%20Gentlemen",
	}
	for in, want := range cases {
		assert.Equal(t, want, percentEncode(in), "input %q", in)
	}
}
