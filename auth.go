package apicore

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACSecretLength = 32

// JWTConfig configures JWTAuth.
type JWTConfig struct {
	Method   SigningMethod
	Lifetime time.Duration
	// Secret is the shared key for hs256.
	Secret []byte
	// PrivateKey and PublicKey are raw or PEM encoded ed25519 keys.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	KeyID      string
	Leeway     time.Duration
}

// JWTAuth issues and verifies access tokens.
type JWTAuth struct {
	config    JWTConfig
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

func NewJWTAuth(cfg JWTConfig) (*JWTAuth, error) {
	if cfg.Lifetime < time.Second {
		return nil, errors.New("new jwt auth: lifetime must be at least one second")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("new jwt auth: invalid leeway")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	a := &JWTAuth{config: cfg, now: time.Now}

	switch cfg.Method {
	case MethodHS256:
		if len(cfg.Secret) < minHMACSecretLength {
			return nil, fmt.Errorf("new jwt auth: hs256 secret must be at least %d bytes", minHMACSecretLength)
		}
		a.method = jwt.SigningMethodHS256
		a.signKey = cfg.Secret
		a.verifyKey = cfg.Secret
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("new jwt auth: %w", err)
		}
		pub, ok := priv.Public().(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("new jwt auth: derive ed25519 public key")
		}
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, fmt.Errorf("new jwt auth: %w", err)
			}
		}
		a.method = jwt.SigningMethodEdDSA
		a.signKey = priv
		a.verifyKey = pub
	default:
		return nil, fmt.Errorf("new jwt auth: unsupported signing method %q", cfg.Method)
	}

	return a, nil
}

// Lifetime returns the token lifetime in seconds.
func (a *JWTAuth) Lifetime() int {
	return int(a.config.Lifetime / time.Second)
}

// CreateJWT signs claims together with the registered claims. Registered
// claims (exp, iat, nbf, jti, iss, aud) always override caller values.
func (a *JWTAuth) CreateJWT(claims map[string]any) (string, error) {
	now := a.now()

	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = jwt.NewNumericDate(now)
	mc["nbf"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(a.config.Lifetime))
	mc["jti"] = uuid.NewString()
	if a.config.Issuer != "" {
		mc["iss"] = a.config.Issuer
	}
	if a.config.Audience != "" {
		mc["aud"] = a.config.Audience
	}

	token := jwt.NewWithClaims(a.method, mc)
	if a.config.KeyID != "" {
		token.Header["kid"] = a.config.KeyID
	}

	signed, err := token.SignedString(a.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and returns its claims. Any failure is reported as
// ErrUnauthorized.
func (a *JWTAuth) Verify(tokenStr string) (jwt.MapClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{a.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(a.now),
	}
	if a.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(a.config.Leeway))
	}
	if a.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		options = append(options, jwt.WithAudience(a.config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if a.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != a.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return a.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %w", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("verify token: %w", ErrUnauthorized)
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
