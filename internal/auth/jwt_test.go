package auth

import (
	"testing"
	"time"
)

func testTokenService() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "picbook-test",
		Duration: time.Hour,
	}
}

func TestTokenService(t *testing.T) {
	ts := testTokenService()
	user := &User{ID: "u-1", Phone: "+8613800138000", TokenVersion: 3}

	t.Run("sign and parse round trip", func(t *testing.T) {
		token, exp, err := ts.Sign(user)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if time.Until(exp) < 55*time.Minute {
			t.Errorf("expiry too soon: %v", exp)
		}

		claims, err := ts.Parse(token)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if claims.UserID != "u-1" || claims.Phone != "+8613800138000" {
			t.Errorf("claims = %+v", claims)
		}
		if claims.TokenVersion != 3 {
			t.Errorf("token version = %d, want 3", claims.TokenVersion)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, _, err := ts.Sign(user)
		if err != nil {
			t.Fatal(err)
		}

		other := testTokenService()
		other.Secret = []byte("different-secret")
		if _, err := other.Parse(token); err == nil {
			t.Error("token signed with another secret parsed")
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		if _, err := ts.Parse("not.a.token"); err == nil {
			t.Error("garbage parsed")
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short := testTokenService()
		short.Duration = -time.Minute

		token, _, err := short.Sign(user)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ts.Parse(token); err == nil {
			t.Error("expired token parsed")
		}
	})
}
