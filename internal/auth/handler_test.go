package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"picbook/pkg/database"
	"picbook/pkg/utils"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Repo, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.MigrateFile(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepo(db)
	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "picbook-test", Duration: time.Hour}
	cfg := utils.AuthConfig{DevCode: "1234", CodeTTL: 5 * time.Minute}

	r := gin.New()
	NewHandler(repo, tokens, cfg).RegisterRoutes(r.Group("/auth"))
	return r, repo, db
}

func postJSON(t *testing.T, r *gin.Engine, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, phone string) string {
	t.Helper()
	if w := postJSON(t, r, "/auth/send-code", `{"phone":"`+phone+`"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("send-code: %d %s", w.Code, w.Body)
	}
	w := postJSON(t, r, "/auth/verify", `{"phone":"`+phone+`","code":"1234"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Token
}

func TestAuthFlow(t *testing.T) {
	t.Run("full login with the dev code", func(t *testing.T) {
		r, repo, _ := newTestRouter(t)
		token := login(t, r, "+8613800138000")
		if token == "" {
			t.Fatal("empty token")
		}

		u, err := repo.GetByPhone(context.Background(), "+8613800138000")
		if err != nil || u == nil {
			t.Fatalf("user not created: %v", err)
		}
	})

	t.Run("invalid phone rejected", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		w := postJSON(t, r, "/auth/send-code", `{"phone":"not-a-phone"}`, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d", w.Code)
		}
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		_ = postJSON(t, r, "/auth/send-code", `{"phone":"+8613800138000"}`, "")
		w := postJSON(t, r, "/auth/verify", `{"phone":"+8613800138000","code":"9999"}`, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("verify without a pending code", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		w := postJSON(t, r, "/auth/verify", `{"phone":"+8613800138000","code":"1234"}`, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d", w.Code)
		}
	})

	t.Run("codes are single use", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		_ = login(t, r, "+8613800138000")
		w := postJSON(t, r, "/auth/verify", `{"phone":"+8613800138000","code":"1234"}`, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("reused code accepted: %d", w.Code)
		}
	})

	t.Run("expired code rejected", func(t *testing.T) {
		r, repo, _ := newTestRouter(t)
		_ = postJSON(t, r, "/auth/send-code", `{"phone":"+8613800138000"}`, "")

		lc, err := repo.GetLoginCode(context.Background(), "+8613800138000")
		if err != nil || lc == nil {
			t.Fatalf("code not stored: %v", err)
		}
		lc.ExpiresAt = time.Now().Add(-time.Minute)
		if err := repo.UpsertLoginCode(context.Background(), *lc); err != nil {
			t.Fatal(err)
		}

		w := postJSON(t, r, "/auth/verify", `{"phone":"+8613800138000","code":"1234"}`, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expired code accepted: %d", w.Code)
		}
	})

	t.Run("second login reuses the account", func(t *testing.T) {
		r, repo, _ := newTestRouter(t)
		_ = login(t, r, "+8613800138000")
		_ = login(t, r, "+8613800138000")

		var n int
		if err := repo.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("users = %d, want 1", n)
		}
	})

	t.Run("logout invalidates the token", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		token := login(t, r, "+8613800138000")

		if w := postJSON(t, r, "/auth/logout", "", token); w.Code != http.StatusOK {
			t.Fatalf("logout: %d %s", w.Code, w.Body)
		}
		// token version bumped, same token no longer passes the middleware
		if w := postJSON(t, r, "/auth/logout", "", token); w.Code != http.StatusUnauthorized {
			t.Errorf("stale token accepted: %d", w.Code)
		}
	})

	t.Run("logout without a token", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		if w := postJSON(t, r, "/auth/logout", "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d", w.Code)
		}
	})
}
