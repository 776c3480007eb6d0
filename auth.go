package main

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tier is the access level a credential grants.
type tier int

const (
	noTier tier = iota
	// Lists channels, reads history, opens websockets.
	publishTier
	// Everything publishTier can do, plus channel CRUD and publishing.
	secretTier
	// Same rights as secretTier; kept apart for key management.
	managementTier
)

var keyPrefixes = []struct {
	prefix string
	tier   tier
}{
	{"pub_", publishTier},
	{"sec_", secretTier},
	{"mgmt_", managementTier},
}

func (t tier) canWrite() bool {
	return t >= secretTier
}

func (t tier) String() string {
	switch t {
	case publishTier:
		return "publish"
	case secretTier:
		return "secret"
	case managementTier:
		return "management"
	default:
		return "none"
	}
}

const tokenIssuer = "pushhub"

// tokenClaims are bound into every connection token.
type tokenClaims struct {
	ClientID string `json:"clientId"`
	Tier     string `json:"tier"`
	jwt.RegisteredClaims
}

type connectionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Endpoint  string    `json:"endpoint"`
	ClientID  string    `json:"clientId"`
}

// gate classifies API keys and mints and checks connection tokens.
type gate struct {
	secret []byte
	ttl    time.Duration
	// When non-empty, only these keys are accepted.
	keys map[string]struct{}
	now  func() time.Time
}

func newGate(cfg Config) (*gate, error) {
	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating token secret: %w", err)
		}
	}
	g := &gate{
		secret: secret,
		ttl:    cfg.TokenTTL,
		keys:   make(map[string]struct{}),
		now:    time.Now,
	}
	for _, key := range splitList(cfg.Keys) {
		g.keys[key] = struct{}{}
	}
	return g, nil
}

// classify returns the tier of key, or Unauthorized.
func (g *gate) classify(key string) (tier, error) {
	if len(g.keys) > 0 {
		if _, ok := g.keys[key]; !ok {
			return noTier, newError(Unauthorized, "Invalid API key")
		}
	}
	for _, kp := range keyPrefixes {
		if strings.HasPrefix(key, kp.prefix) && len(key) > len(kp.prefix) {
			return kp.tier, nil
		}
	}
	return noTier, newError(Unauthorized, "Invalid API key format")
}

// authorize checks the bearer credential of r. write requires a tier that
// can write.
func (g *gate) authorize(r *http.Request, write bool) (tier, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return noTier, newError(Unauthorized, "Missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return noTier, newError(Unauthorized, "Invalid authorization format")
	}
	t, err := g.classify(parts[1])
	if err != nil {
		return noTier, err
	}
	if write && !t.canWrite() {
		return t, newError(Forbidden, "Publish key does not have write access")
	}
	return t, nil
}

// issue mints a connection token for publishKey. A missing clientID gets a
// generated one.
func (g *gate) issue(publishKey, clientID, endpoint string) (connectionToken, error) {
	if publishKey == "" {
		return connectionToken{}, newError(InvalidInput, "publishKey is required")
	}
	t, err := g.classify(publishKey)
	if err != nil {
		return connectionToken{}, err
	}
	if clientID == "" {
		clientID = shortID("client_", 8)
	}
	now := g.now()
	expires := now.Add(g.ttl)
	claims := &tokenClaims{
		ClientID: clientID,
		Tier:     t.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return connectionToken{}, fmt.Errorf("signing connection token: %w", err)
	}
	return connectionToken{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		Endpoint:  endpoint,
		ClientID:  clientID,
	}, nil
}

// verify checks signature, issuer and expiry of a connection token.
func (g *gate) verify(token string) (*tokenClaims, error) {
	if token == "" {
		return nil, newError(Unauthorized, "Missing token")
	}
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, newError(Unauthorized, "Invalid token")
	}
	return claims, nil
}
