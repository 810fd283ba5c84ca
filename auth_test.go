package apicore_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/apicore"
)

var hmacSecret = []byte("0123456789abcdef0123456789abcdef")

func newHS256(t *testing.T, mutate func(*apicore.JWTConfig)) *apicore.JWTAuth {
	t.Helper()
	cfg := apicore.JWTConfig{Method: apicore.MethodHS256, Lifetime: time.Hour, Secret: hmacSecret}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := apicore.NewJWTAuth(cfg)
	require.NoError(t, err)
	return a
}

func TestNewJWTAuth_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  apicore.JWTConfig
	}{
		{"short lifetime", apicore.JWTConfig{Method: apicore.MethodHS256, Lifetime: time.Millisecond, Secret: hmacSecret}},
		{"negative leeway", apicore.JWTConfig{Method: apicore.MethodHS256, Lifetime: time.Hour, Secret: hmacSecret, Leeway: -time.Second}},
		{"large leeway", apicore.JWTConfig{Method: apicore.MethodHS256, Lifetime: time.Hour, Secret: hmacSecret, Leeway: time.Hour}},
		{"short secret", apicore.JWTConfig{Method: apicore.MethodHS256, Lifetime: time.Hour, Secret: []byte("short")}},
		{"bad ed25519 key", apicore.JWTConfig{Method: apicore.MethodEd25519, Lifetime: time.Hour, PrivateKey: []byte("nope")}},
		{"unknown method", apicore.JWTConfig{Method: "rs256", Lifetime: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := apicore.NewJWTAuth(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestJWTAuth_Lifetime(t *testing.T) {
	a := newHS256(t, func(c *apicore.JWTConfig) { c.Lifetime = 90 * time.Minute })
	assert.Equal(t, 5400, a.Lifetime())
}

func TestJWTAuth_CreateAndVerify(t *testing.T) {
	a := newHS256(t, func(c *apicore.JWTConfig) {
		c.Issuer = "https://issuer.example"
		c.Audience = "api"
		c.KeyID = " k1 "
	})

	token, err := a.CreateJWT(map[string]any{"sub": "web", "exp": 1, "scope": "read"})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "web", claims["sub"])
	assert.Equal(t, "read", claims["scope"])
	assert.Equal(t, "https://issuer.example", claims["iss"])
	assert.Equal(t, "api", claims["aud"])
	assert.NotEmpty(t, claims["jti"])

	// Registered claims override caller values.
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, 5*time.Second)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "k1", parsed.Header["kid"])
	assert.Equal(t, "HS256", parsed.Header["alg"])
}

func TestJWTAuth_UniqueJTI(t *testing.T) {
	a := newHS256(t, nil)

	t1, err := a.CreateJWT(nil)
	require.NoError(t, err)
	t2, err := a.CreateJWT(nil)
	require.NoError(t, err)

	c1, err := a.Verify(t1)
	require.NoError(t, err)
	c2, err := a.Verify(t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1["jti"], c2["jti"])
}

func TestJWTAuth_VerifyRejects(t *testing.T) {
	a := newHS256(t, func(c *apicore.JWTConfig) { c.Issuer = "iss"; c.Audience = "api" })

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	good := func() jwt.MapClaims {
		return jwt.MapClaims{"iss": "iss", "aud": "api", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}
	}

	other := newHS256(t, func(c *apicore.JWTConfig) {
		c.Secret = []byte("ffffffffffffffffffffffffffffffff")
		c.Issuer = "iss"
		c.Audience = "api"
	})
	foreign, err := other.CreateJWT(nil)
	require.NoError(t, err)

	expired := good()
	expired["exp"] = now.Add(-time.Minute).Unix()
	wrongIssuer := good()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := good()
	wrongAudience["aud"] = "other"
	noExp := good()
	delete(noExp, "exp")

	tests := map[string]string{
		"garbage":        "not-a-token",
		"foreign secret": foreign,
		"expired":        sign(expired, jwt.SigningMethodHS256, hmacSecret),
		"wrong issuer":   sign(wrongIssuer, jwt.SigningMethodHS256, hmacSecret),
		"wrong audience": sign(wrongAudience, jwt.SigningMethodHS256, hmacSecret),
		"missing exp":    sign(noExp, jwt.SigningMethodHS256, hmacSecret),
		"alg none":       sign(good(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
		"hs384":          sign(good(), jwt.SigningMethodHS384, hmacSecret),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(token)
			require.ErrorIs(t, err, apicore.ErrUnauthorized)
		})
	}
}

func TestJWTAuth_VerifyKeyID(t *testing.T) {
	a := newHS256(t, func(c *apicore.JWTConfig) { c.KeyID = "k1" })
	b := newHS256(t, func(c *apicore.JWTConfig) { c.KeyID = "k2" })

	token, err := b.CreateJWT(nil)
	require.NoError(t, err)

	_, err = a.Verify(token)
	require.ErrorIs(t, err, apicore.ErrUnauthorized)
}

func TestJWTAuth_Ed25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	tests := []struct {
		name string
		cfg  apicore.JWTConfig
	}{
		{"pem keys", apicore.JWTConfig{PrivateKey: privPEM, PublicKey: pubPEM}},
		{"pem private only", apicore.JWTConfig{PrivateKey: privPEM}},
		{"raw keys", apicore.JWTConfig{PrivateKey: priv, PublicKey: pub}},
		{"seed", apicore.JWTConfig{PrivateKey: priv.Seed()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Method = apicore.MethodEd25519
			cfg.Lifetime = time.Minute

			a, err := apicore.NewJWTAuth(cfg)
			require.NoError(t, err)

			token, err := a.CreateJWT(map[string]any{"sub": "svc"})
			require.NoError(t, err)

			claims, err := a.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "svc", claims["sub"])

			// An HS256 token is rejected by an EdDSA verifier.
			hs, err := newHS256(t, nil).CreateJWT(nil)
			require.NoError(t, err)
			_, err = a.Verify(hs)
			require.ErrorIs(t, err, apicore.ErrUnauthorized)
		})
	}
}
