package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"picbook/internal/auth"
	"picbook/internal/generate"
	"picbook/internal/provider"
	"picbook/pkg/models"
)

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: userID})
		c.Next()
	}
}

func newTestServer(t *testing.T, gen *fakeGenerator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := newTestManager(gen, nil, nil, nil)
	r := gin.New()
	NewHandler(m).RegisterRoutes(r.Group("/users", asUser("u1")))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerStatusMapping(t *testing.T) {
	t.Run("wrong stage is a conflict", func(t *testing.T) {
		r := newTestServer(t, nil)
		w := do(t, r, http.MethodPost, "/users/workflow/advance", "")
		if w.Code != http.StatusConflict {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("empty theme is a bad request", func(t *testing.T) {
		r := newTestServer(t, &fakeGenerator{
			err: &generate.GenerationError{Kind: generate.KindEmptyTheme, Err: errors.New("blank")},
		})
		w := do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":""}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("generation timeout is a gateway timeout", func(t *testing.T) {
		r := newTestServer(t, &fakeGenerator{
			err: &generate.GenerationError{Kind: generate.KindTimeout, Err: context.DeadlineExceeded},
		})
		w := do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":"主题"}`)
		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("malformed provider output is a bad gateway", func(t *testing.T) {
		r := newTestServer(t, &fakeGenerator{
			err: &generate.GenerationError{Kind: generate.KindEmptyOrMalformed, Err: errors.New("no json")},
		})
		w := do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":"主题"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("missing provider key is service unavailable", func(t *testing.T) {
		r := newTestServer(t, &fakeGenerator{
			err: &generate.GenerationError{
				Kind: generate.KindTransport,
				Err:  &provider.ConfigError{Provider: "chat", Missing: "PICBOOK_CHAT_API_KEY"},
			},
		})
		w := do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":"主题"}`)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("unknown style is a bad request", func(t *testing.T) {
		r := newTestServer(t, nil)
		_ = do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":"主题"}`)
		_ = do(t, r, http.MethodPost, "/users/workflow/advance", "")

		w := do(t, r, http.MethodPost, "/users/workflow/illustrations", `{"style_id":"vaporwave","aspect_ratio":"16:9"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d %s", w.Code, w.Body)
		}
	})

	t.Run("no claims means unauthorized", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		m := newTestManager(nil, nil, nil, nil)
		r := gin.New()
		NewHandler(m).RegisterRoutes(r.Group("/users"))

		w := do(t, r, http.MethodGet, "/users/workflow", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d", w.Code)
		}
	})
}

func TestHandlerHappyPath(t *testing.T) {
	r := newTestServer(t, nil)

	w := do(t, r, http.MethodPost, "/users/workflow/story", `{"theme":"勇敢的小兔子"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("story: %d %s", w.Code, w.Body)
	}
	var storyResp struct {
		Pages []models.Page `json:"pages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &storyResp); err != nil {
		t.Fatal(err)
	}
	if len(storyResp.Pages) != 6 {
		t.Fatalf("pages = %d", len(storyResp.Pages))
	}

	if w := do(t, r, http.MethodPost, "/users/workflow/advance", ""); w.Code != http.StatusOK {
		t.Fatalf("advance: %d %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodPost, "/users/workflow/illustrations", `{"style_id":"watercolor","aspect_ratio":"16:9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("illustrations: %d %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodPost, "/users/workflow/save", `{"title":"小兔子绘本"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: %d %s", w.Code, w.Body)
	}
	var saved models.Story
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.Title != "小兔子绘本" {
		t.Errorf("saved = %+v", saved)
	}

	// wizard is back at the start
	w = do(t, r, http.MethodGet, "/users/workflow", "")
	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Stage != StageTheme {
		t.Errorf("stage = %q", snap.Stage)
	}
}

func TestHandlerOptions(t *testing.T) {
	r := newTestServer(t, nil)
	w := do(t, r, http.MethodGet, "/users/workflow/options", "")
	if w.Code != http.StatusOK {
		t.Fatalf("options: %d", w.Code)
	}

	var resp struct {
		Styles       []models.IllustrationStyle `json:"styles"`
		AspectRatios []string                   `json:"aspect_ratios"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Styles) != len(models.Styles) {
		t.Errorf("styles = %d, want %d", len(resp.Styles), len(models.Styles))
	}
	if len(resp.AspectRatios) != 3 {
		t.Errorf("ratios = %v", resp.AspectRatios)
	}
}
