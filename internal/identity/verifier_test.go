package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestNewVerifierRequiresConfig(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{Issuer: "iss", Audience: "aud"}); err == nil {
		t.Fatalf("expected missing jwks url to fail")
	}
	if _, err := NewVerifier(VerifierConfig{JWKSURL: "http://example.invalid", Audience: "aud"}); err == nil {
		t.Fatalf("expected missing issuer to fail")
	}
	if _, err := NewVerifier(VerifierConfig{JWKSURL: "http://example.invalid", Issuer: "iss"}); err == nil {
		t.Fatalf("expected missing audience to fail")
	}
}

func TestVerifySubjectAndRefreshOnUnknownKid(t *testing.T) {
	key1, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key1: %v", err)
	}
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key2: %v", err)
	}

	active := "kid-1"
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=1")
		key := key1.PublicKey
		if active == "kid-2" {
			key = key2.PublicKey
		}
		resp := map[string]any{"keys": []map[string]string{toJWK(active, key)}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(VerifierConfig{
		JWKSURL:  jwksServer.URL,
		Issuer:   "https://idp.example.com/",
		Audience: "minichat-api",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	signed1 := signTestToken(t, key1, "kid-1", "auth0|alice")
	if sub, err := v.VerifySubject(signed1); err != nil || sub != "auth0|alice" {
		t.Fatalf("verify token1 failed: sub=%s err=%v", sub, err)
	}

	// Rotate to kid-2; the verifier should refresh JWKS on unknown kid.
	active = "kid-2"
	signed2 := signTestToken(t, key2, "kid-2", "auth0|bob")
	if sub, err := v.VerifySubject(signed2); err != nil || sub != "auth0|bob" {
		t.Fatalf("verify token2 failed: sub=%s err=%v", sub, err)
	}
}

func TestVerifyRejectsWrongKeyAndClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"keys": []map[string]string{toJWK("kid-1", key.PublicKey)}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(VerifierConfig{
		JWKSURL:  jwksServer.URL,
		Issuer:   "https://idp.example.com/",
		Audience: "minichat-api",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.VerifySubject(signTestToken(t, otherKey, "kid-1", "auth0|mallory")); err == nil {
		t.Fatalf("expected wrong signing key to fail")
	}

	wrongAud := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "auth0|alice",
		Issuer:    "https://idp.example.com/",
		Audience:  jwt.ClaimStrings{"someone-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	wrongAud.Header["kid"] = "kid-1"
	signed, err := wrongAud.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := v.VerifySubject(signed); err == nil {
		t.Fatalf("expected wrong audience to fail")
	}
}

func signTestToken(t *testing.T, key *rsa.PrivateKey, kid, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://idp.example.com/",
		Audience:  jwt.ClaimStrings{"minichat-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Second)),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func toJWK(kid string, key rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
