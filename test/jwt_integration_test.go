//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/blacklist"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/store/memory"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestForgedTokensAreRejected(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, memory.New(), blacklist.NewMemory(), nil, nil)
	pub := createAdmin(t, engine, "forge@example.com")

	now := time.Now()
	claims := jwt.AccessClaims{
		Email: pub.Email,
		Role:  "super-admin",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   pub.ID,
			Issuer:    "adminauth",
			ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(now),
		},
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	wrongKey, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(strings.Repeat("x", 32)))
	if err != nil {
		t.Fatalf("sign wrong key: %v", err)
	}
	// Signed with the refresh secret: valid signature, wrong token class.
	crossKey, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(strings.Repeat("j", 32)))
	if err != nil {
		t.Fatalf("sign refresh key: %v", err)
	}
	hs512, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString([]byte(strings.Repeat("i", 32)))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}

	for name, token := range map[string]string{
		"alg none":       none,
		"wrong key":      wrongKey,
		"refresh secret": crossKey,
		"hs512":          hs512,
	} {
		if _, err := engine.Authorize(ctx, token); !errors.Is(err, adminauth.ErrTokenInvalid) {
			t.Errorf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestTokenClassesDoNotCross(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, memory.New(), blacklist.NewMemory(), nil, nil)
	createAdmin(t, engine, "cross@example.com")

	res, err := engine.Login(ctx, "cross@example.com", adminPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := engine.Authorize(ctx, res.RefreshToken); !errors.Is(err, adminauth.ErrTokenInvalid) {
		t.Fatalf("refresh token as access: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := engine.Refresh(ctx, res.AccessToken); !errors.Is(err, adminauth.ErrTokenInvalid) {
		t.Fatalf("access token as refresh: expected ErrTokenInvalid, got %v", err)
	}
}
