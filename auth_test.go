package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T, tweaks ...func(*Config)) *gate {
	t.Helper()
	cfg := testConfig()
	for _, tweak := range tweaks {
		tweak(&cfg)
	}
	g, err := newGate(cfg)
	require.NoError(t, err)
	return g
}

func TestClassify(t *testing.T) {
	tests := []struct {
		key  string
		want tier
		ok   bool
	}{
		{"pub_abc", publishTier, true},
		{"sec_abc", secretTier, true},
		{"mgmt_abc", managementTier, true},
		{"pub_", noTier, false},
		{"abc", noTier, false},
		{"PUB_abc", noTier, false},
		{"", noTier, false},
	}
	g := newTestGate(t)
	for _, tt := range tests {
		got, err := g.classify(tt.key)
		if !tt.ok {
			requireKind(t, Unauthorized, err)
			continue
		}
		require.NoError(t, err, tt.key)
		require.Equal(t, tt.want, got, tt.key)
	}
}

func TestClassifyAllowlist(t *testing.T) {
	g := newTestGate(t, func(cfg *Config) { cfg.Keys = "pub_one, sec_two" })

	got, err := g.classify("sec_two")
	require.NoError(t, err)
	require.Equal(t, secretTier, got)

	_, err = g.classify("sec_three")
	requireKind(t, Unauthorized, err)
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name   string
		header string
		write  bool
		kind   errorKind
		msg    string
	}{
		{"missing", "", false, Unauthorized, "Missing authorization header"},
		{"no scheme", "pub_abc", false, Unauthorized, "Invalid authorization format"},
		{"wrong scheme", "Basic pub_abc", false, Unauthorized, "Invalid authorization format"},
		{"unknown prefix", "Bearer abc", false, Unauthorized, "Invalid API key format"},
		{"publish key writing", "Bearer pub_abc", true, Forbidden, "Publish key does not have write access"},
	}
	g := newTestGate(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			_, err := g.authorize(r, tt.write)
			requireKind(t, tt.kind, err)
			require.Equal(t, tt.msg, err.Error())
		})
	}

	for header, write := range map[string]bool{
		"Bearer pub_abc":  false,
		"Bearer sec_abc":  true,
		"Bearer mgmt_abc": true,
	} {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", header)
		_, err := g.authorize(r, write)
		require.NoError(t, err, header)
	}
}

func TestIssueAndVerify(t *testing.T) {
	req := require.New(t)
	g := newTestGate(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	tok, err := g.issue("pub_abc", "monkey", "ws://example.com/ws")
	req.NoError(err)
	req.Equal("monkey", tok.ClientID)
	req.Equal("ws://example.com/ws", tok.Endpoint)
	req.Equal(now.Add(time.Hour), tok.ExpiresAt.UTC())

	claims, err := g.verify(tok.Token)
	req.NoError(err)
	req.Equal("monkey", claims.ClientID)
	req.Equal("publish", claims.Tier)

	// Generated client id.
	tok, err = g.issue("sec_abc", "", "")
	req.NoError(err)
	req.Regexp(`^client_[0-9a-f]{8}$`, tok.ClientID)
}

func TestIssueErrors(t *testing.T) {
	g := newTestGate(t)
	_, err := g.issue("", "monkey", "")
	requireKind(t, InvalidInput, err)
	_, err = g.issue("banana", "monkey", "")
	requireKind(t, Unauthorized, err)
}

func TestVerifyRejects(t *testing.T) {
	g := newTestGate(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	tok, err := g.issue("pub_abc", "monkey", "")
	require.NoError(t, err)

	_, err = g.verify("")
	requireKind(t, Unauthorized, err)
	_, err = g.verify("not-a-token")
	requireKind(t, Unauthorized, err)
	_, err = g.verify(tamper(tok.Token))
	requireKind(t, Unauthorized, err)

	// Signed by someone else.
	other := newTestGate(t, func(cfg *Config) { cfg.TokenSecret = "other-secret" })
	other.now = g.now
	_, err = other.verify(tok.Token)
	requireKind(t, Unauthorized, err)

	// Expired.
	g.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = g.verify(tok.Token)
	requireKind(t, Unauthorized, err)
}

// tamper changes the first character of the signature.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := byte('A')
	if token[i] == c {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	g := newTestGate(t)
	claims := &tokenClaims{
		ClientID: "monkey",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(unsigned, "."))

	_, err = g.verify(unsigned)
	requireKind(t, Unauthorized, err)
}

func TestRandomSecret(t *testing.T) {
	a := newTestGate(t, func(cfg *Config) { cfg.TokenSecret = "" })
	b := newTestGate(t, func(cfg *Config) { cfg.TokenSecret = "" })
	require.Len(t, a.secret, 32)
	require.NotEqual(t, a.secret, b.secret)
}
