package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeyPair generates an RSA key pair and returns the private key plus
// the public key encoded as PKIX PEM, the format the config carries.
func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticate_APIKey(t *testing.T) {
	cfg := AuthConfig{APIKeys: []string{"valid-key", "other-key"}}

	tests := []struct {
		name       string
		authHeader string
		success    bool
	}{
		{name: "valid key", authHeader: "ApiKey valid-key", success: true},
		{name: "second configured key", authHeader: "ApiKey other-key", success: true},
		{name: "case insensitive scheme", authHeader: "APIKEY valid-key", success: true},
		{name: "invalid key", authHeader: "ApiKey wrong-key", success: false},
		{name: "missing header", authHeader: "", success: false},
		{name: "no credentials", authHeader: "ApiKey", success: false},
		{name: "unsupported scheme", authHeader: "Basic dXNlcjpwYXNz", success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Authenticate(tt.authHeader, cfg)
			assert.Equal(t, tt.success, result.Success)
			if tt.success {
				assert.Equal(t, "apikey", result.AuthType)
				assert.Empty(t, result.AuthSubject)
			} else {
				assert.Error(t, result.Error)
			}
		})
	}
}

func TestAuthenticate_APIKeyNoneConfigured(t *testing.T) {
	result := Authenticate("ApiKey any-key", AuthConfig{})
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestAuthenticate_JWT(t *testing.T) {
	key, publicPEM := testKeyPair(t)
	cfg := AuthConfig{JWTPublicKey: publicPEM}

	t.Run("valid token carries subject", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		result := Authenticate("Bearer "+token, cfg)
		require.True(t, result.Success)
		assert.Equal(t, "jwt", result.AuthType)
		assert.Equal(t, "alice", result.AuthSubject)
		require.NotNil(t, result.Claims)
		assert.Equal(t, "alice", result.Claims.Subject)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
		assert.Error(t, result.Error)
	})

	t.Run("not yet valid token rejected", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "alice",
			NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		})
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("token signed by another key rejected", func(t *testing.T) {
		otherKey, _ := testKeyPair(t)
		token := signToken(t, otherKey, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("HMAC signed token rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "alice",
		}).SignedString([]byte("not-an-rsa-key"))
		require.NoError(t, err)
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("no public key configured", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{Subject: "alice"})
		result := Authenticate("Bearer "+token, AuthConfig{})
		assert.False(t, result.Success)
	})

	t.Run("garbage token", func(t *testing.T) {
		result := Authenticate("Bearer not.a.token", cfg)
		assert.False(t, result.Success)
	})
}

func TestParseRSAPublicKey(t *testing.T) {
	key, publicPEM := testKeyPair(t)

	t.Run("pkix pem", func(t *testing.T) {
		parsed, err := parseRSAPublicKey(publicPEM)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})

	t.Run("pkcs1 pem", func(t *testing.T) {
		der := x509.MarshalPKCS1PublicKey(&key.PublicKey)
		pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: der})
		parsed, err := parseRSAPublicKey(string(pkcs1))
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})

	t.Run("not pem", func(t *testing.T) {
		_, err := parseRSAPublicKey("definitely not a key")
		assert.Error(t, err)
	})
}
