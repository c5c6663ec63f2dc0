package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.Issue("u1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "u1" {
		t.Errorf("Parse() = %q, want u1", got)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issued := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ti := NewTokenIssuer("secret", time.Hour)
	ti.now = func() time.Time { return issued }
	valid, err := ti.Issue("u1")
	if err != nil {
		t.Fatal(err)
	}

	otherKey, _ := NewTokenIssuer("other", time.Hour).Issue("u1")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "u1",
	}).SignedString([]byte("secret"))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "expired", token: valid, at: issued.Add(2 * time.Hour)},
		{name: "wrong key", token: otherKey, at: time.Now()},
		{name: "alg none", token: none, at: issued},
		{name: "no expiry", token: noExpiry, at: issued},
		{name: "no subject", token: noSubject, at: issued},
		{name: "garbage", token: "abc.def.ghi", at: issued},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ti.now = func() time.Time { return tt.at }
			if _, err := ti.Parse(tt.token); err != ErrInvalidToken {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
