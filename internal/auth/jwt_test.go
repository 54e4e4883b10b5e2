package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"CrudAPI/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Unix(1730000000, 0)

func hsConfig() config.JWTConfig {
	return config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "crud-api",
		HMACSecret:     "super-secret",
	}
}

func newTestValidator(t *testing.T, cfg config.JWTConfig) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.clockFunc = func() time.Time { return testNow }
	return v
}

func validClaims(cfg config.JWTConfig) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": testNow.Unix() - 10,
		"nbf": testNow.Unix() - 5,
		"exp": testNow.Unix() + 30,
		"sub": "user-1",
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return token
}

func TestHS256ValidateToken(t *testing.T) {
	cfg := hsConfig()
	v := newTestValidator(t, cfg)

	claims, err := v.ValidateToken(signHS256(t, cfg.HMACSecret, validClaims(cfg)))
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims["sub"] != "user-1" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := hsConfig()
	v := newTestValidator(t, cfg)

	cases := map[string]func(jwt.MapClaims){
		"expired":        func(c jwt.MapClaims) { c["exp"] = testNow.Unix() - 1 },
		"missing exp":    func(c jwt.MapClaims) { delete(c, "exp") },
		"not yet valid":  func(c jwt.MapClaims) { c["nbf"] = testNow.Unix() + 60 },
		"issued later":   func(c jwt.MapClaims) { c["iat"] = testNow.Unix() + 60 },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "someone-else" },
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "other-api" },
	}
	for name, mutate := range cases {
		claims := validClaims(cfg)
		mutate(claims)
		if _, err := v.ValidateToken(signHS256(t, cfg.HMACSecret, claims)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := v.ValidateToken(signHS256(t, "other-secret", validClaims(cfg))); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateTokenClockSkew(t *testing.T) {
	cfg := hsConfig()
	cfg.ClockSkewSec = 60
	v := newTestValidator(t, cfg)

	claims := validClaims(cfg)
	claims["exp"] = testNow.Unix() - 30
	if _, err := v.ValidateToken(signHS256(t, cfg.HMACSecret, claims)); err != nil {
		t.Fatalf("token within skew rejected: %v", err)
	}
}

func TestAudienceList(t *testing.T) {
	cfg := hsConfig()
	v := newTestValidator(t, cfg)

	claims := validClaims(cfg)
	claims["aud"] = []string{"other-api", cfg.Audience}
	if _, err := v.ValidateToken(signHS256(t, cfg.HMACSecret, claims)); err != nil {
		t.Fatalf("audience list rejected: %v", err)
	}
}

func TestRS256ValidateToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	cfg := config.JWTConfig{
		ValidationType: "RS256",
		Issuer:         "auth-service",
		Audience:       "crud-api",
		PublicKeyPEM:   string(pubPEM),
	}
	v := newTestValidator(t, cfg)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims(cfg)).SignedString(priv)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := v.ValidateToken(token); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	// an HS256 token must not pass an RS256 validator
	if _, err := v.ValidateToken(signHS256(t, "super-secret", validClaims(cfg))); err == nil {
		t.Fatalf("expected alg mismatch error")
	}
}

func TestNewJWTValidatorConfigErrors(t *testing.T) {
	cases := map[string]config.JWTConfig{
		"no issuer":   {ValidationType: "HS256", Audience: "a", HMACSecret: "s"},
		"no audience": {ValidationType: "HS256", Issuer: "i", HMACSecret: "s"},
		"no secret":   {ValidationType: "HS256", Issuer: "i", Audience: "a"},
		"no key":      {ValidationType: "RS256", Issuer: "i", Audience: "a"},
		"bad key":     {ValidationType: "RS256", Issuer: "i", Audience: "a", PublicKeyPEM: "garbage"},
		"bad alg":     {ValidationType: "none", Issuer: "i", Audience: "a"},
	}
	for name, cfg := range cases {
		if _, err := NewJWTValidator(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	cfg := hsConfig()
	v := newTestValidator(t, cfg)

	req := httptest.NewRequest("GET", "/api/users", nil)
	if _, err := v.Authenticate(req); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+signHS256(t, cfg.HMACSecret, validClaims(cfg)))
	authed, err := v.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	claims, ok := ClaimsFromContext(authed.Context())
	if !ok || claims["sub"] != "user-1" {
		t.Fatalf("claims not in context: %v", claims)
	}
}
