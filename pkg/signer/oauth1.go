package signer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OAuth1 protocol parameter names.
const (
	paramConsumerKey     = "oauth_consumer_key"
	paramNonce           = "oauth_nonce"
	paramSignature       = "oauth_signature"
	paramSignatureMethod = "oauth_signature_method"
	paramTimestamp       = "oauth_timestamp"
	paramToken           = "oauth_token"
	paramVersion         = "oauth_version"

	signatureMethodHMACSHA1 = "HMAC-SHA1"
	protocolVersion         = "1.0"
)

// Param is a single protocol or application parameter included in the
// signature base string. PreEncoded marks a value that the caller has already
// percent-encoded; the signer uses it verbatim instead of encoding it again.
// Some providers require the oauth_callback value pre-encoded before signing.
type Param struct {
	Key        string
	Value      string
	PreEncoded bool
}

// OAuth1 signs requests with HMAC-SHA1 per RFC 5849.
type OAuth1 struct {
	clientID     string
	clientSecret string
	nonce        func() string
	now          func() time.Time
}

// OAuth1Option configures an OAuth1 signer during construction.
type OAuth1Option func(*OAuth1)

// WithNonceFunc overrides nonce generation. Intended for tests that verify
// signatures against recorded provider exchanges.
func WithNonceFunc(fn func() string) OAuth1Option {
	return func(s *OAuth1) {
		if fn != nil {
			s.nonce = fn
		}
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(fn func() time.Time) OAuth1Option {
	return func(s *OAuth1) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewOAuth1 creates a signer bound to a provider's client credentials.
// Returns ErrMissingClientCredentials if either credential is empty.
func NewOAuth1(clientID, clientSecret string, opts ...OAuth1Option) (*OAuth1, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingClientCredentials
	}
	s := &OAuth1{
		clientID:     clientID,
		clientSecret: clientSecret,
		nonce:        randomNonce,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignURL signs rawURL for a GET-style exchange and returns the URL with all
// protocol parameters, including the signature, appended to the query string.
// Token and tokenSecret may both be empty for the unauthorized request-token
// step. Extra parameters participate in the signature and the output query.
func (s *OAuth1) SignURL(rawURL, token, tokenSecret string, extra ...Param) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.Join(ErrInvalidRequestURL, err)
	}

	params, err := s.protocolParams(token, tokenSecret, extra)
	if err != nil {
		return "", err
	}
	params = append(params, queryParams(u.Query())...)

	signature := s.computeSignature(http.MethodGet, u, params, tokenSecret)

	var b strings.Builder
	b.WriteString(baseURI(u))
	sep := "?"
	for _, p := range signedQueryOrder(params, u.Query()) {
		b.WriteString(sep)
		sep = "&"
		b.WriteString(p.Key)
		b.WriteByte('=')
		if p.PreEncoded {
			b.WriteString(p.Value)
		} else {
			b.WriteString(percentEncode(p.Value))
		}
	}
	b.WriteString(sep + paramSignature + "=" + percentEncode(signature))
	return b.String(), nil
}

// SignRequest signs req in place by setting an "Authorization: OAuth ..."
// header. Query parameters and, for form-encoded bodies, body parameters are
// included in the signature base string. The request body is restored after
// reading.
func (s *OAuth1) SignRequest(req *http.Request, token, tokenSecret string, extra ...Param) error {
	params, err := s.protocolParams(token, tokenSecret, extra)
	if err != nil {
		return err
	}

	all := append(params, queryParams(req.URL.Query())...)

	if req.Body != nil && strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("read request body for signing: %w", err)
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(strings.NewReader(string(body)))
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return fmt.Errorf("parse form body for signing: %w", err)
		}
		all = append(all, queryParams(form)...)
	}

	signature := s.computeSignature(req.Method, req.URL, all, tokenSecret)

	header := make([]string, 0, len(params)+1)
	for _, p := range params {
		v := p.Value
		if !p.PreEncoded {
			v = percentEncode(v)
		}
		header = append(header, fmt.Sprintf("%s=%q", p.Key, v))
	}
	header = append(header, fmt.Sprintf("%s=%q", paramSignature, percentEncode(signature)))
	req.Header.Set("Authorization", "OAuth "+strings.Join(header, ", "))
	return nil
}

// protocolParams assembles the oauth_* parameter set plus extras, validating
// the token/secret pairing.
func (s *OAuth1) protocolParams(token, tokenSecret string, extra []Param) ([]Param, error) {
	if token != "" && tokenSecret == "" {
		return nil, ErrMissingTokenSecret
	}

	params := []Param{
		{Key: paramConsumerKey, Value: s.clientID},
		{Key: paramNonce, Value: s.nonce()},
		{Key: paramSignatureMethod, Value: signatureMethodHMACSHA1},
		{Key: paramTimestamp, Value: strconv.FormatInt(s.now().Unix(), 10)},
		{Key: paramVersion, Value: protocolVersion},
	}
	if token != "" {
		params = append(params, Param{Key: paramToken, Value: token})
	}
	return append(params, extra...), nil
}

func (s *OAuth1) computeSignature(method string, u *url.URL, params []Param, tokenSecret string) string {
	base := signatureBaseString(method, u, params)
	key := percentEncode(s.clientSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureBaseString builds the RFC 5849 section 3.4.1 base string:
// METHOD & enc(base URI) & enc(normalized parameters).
func signatureBaseString(method string, u *url.URL, params []Param) string {
	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(params))
	for _, p := range params {
		v := p.Value
		if !p.PreEncoded {
			v = percentEncode(v)
		}
		pairs = append(pairs, pair{key: percentEncode(p.Key), value: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	normalized := make([]string, len(pairs))
	for i, p := range pairs {
		normalized[i] = p.key + "=" + p.value
	}

	return strings.ToUpper(method) + "&" +
		percentEncode(baseURI(u)) + "&" +
		percentEncode(strings.Join(normalized, "&"))
}

// baseURI strips the query and fragment, lower-cases scheme and host, and
// drops default ports per RFC 5849 section 3.4.1.2.
func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return scheme + "://" + host + u.EscapedPath()
}

func queryParams(values url.Values) []Param {
	params := make([]Param, 0, len(values))
	for key, vs := range values {
		for _, v := range vs {
			params = append(params, Param{Key: key, Value: v})
		}
	}
	return params
}

// signedQueryOrder merges original query parameters and protocol parameters
// into a stable output order: original query first, then oauth parameters
// sorted by key.
func signedQueryOrder(params []Param, original url.Values) []Param {
	oauth := make([]Param, 0, len(params))
	rest := make([]Param, 0, len(params))
	for _, p := range params {
		if _, ok := original[p.Key]; ok {
			rest = append(rest, p)
			continue
		}
		oauth = append(oauth, p)
	}
	sort.SliceStable(oauth, func(i, j int) bool { return oauth[i].Key < oauth[j].Key })
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Key < rest[j].Key })
	return append(rest, oauth...)
}

// percentEncode implements the RFC 3986 encoding RFC 5849 requires: only
// ALPHA, DIGIT, "-", ".", "_", "~" pass through, everything else becomes
// %XX with upper-case hex. Notably space becomes %20, never "+".
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func randomNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process cannot do anything useful.
		panic(fmt.Errorf("signer: read random nonce: %w", err))
	}
	return hex.EncodeToString(b)
}
