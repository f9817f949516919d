package oauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
)

const testClientID = "my-app"

type signingKey struct {
	kid string
	key *rsa.PrivateKey
}

func newSigningKey(t *testing.T, kid string) signingKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return signingKey{kid: kid, key: key}
}

func (k signingKey) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.kid
	signed, err := token.SignedString(k.key)
	require.NoError(t, err)
	return signed
}

// jwksServer publica un JWKS que se puede rotar durante el test.
type jwksServer struct {
	*httptest.Server
	mu      sync.Mutex
	body    []byte
	hits    atomic.Int32
	failing atomic.Bool
}

func newJWKSServer(t *testing.T, keys ...signingKey) *jwksServer {
	t.Helper()
	s := &jwksServer{}
	s.publish(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		if s.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		s.mu.Lock()
		body := s.body
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) publish(t *testing.T, keys ...signingKey) {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		pub, err := jwk.Import(&k.key.PublicKey)
		require.NoError(t, err)
		require.NoError(t, pub.Set(jwk.KeyIDKey, k.kid))
		require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))
		require.NoError(t, pub.Set(jwk.KeyUsageKey, "sig"))
		require.NoError(t, set.AddKey(pub))
	}
	body, err := json.Marshal(set)
	require.NoError(t, err)

	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
}

func idTokenClaims(issuer, aud, sub string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": issuer,
		"aud": aud,
		"sub": sub,
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": exp.Unix(),
	}
}

func testKeySetConfig(jwksURL string) KeySetConfig {
	return KeySetConfig{
		JWKSURL:              jwksURL,
		MinRefresh:           15 * time.Minute,
		MaxRefresh:           24 * time.Hour,
		RegisterTimeout:      time.Second,
		ForceRefreshCooldown: time.Minute,
	}
}
