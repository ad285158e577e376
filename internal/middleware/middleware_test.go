package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/identity"
	"github.com/stemsi/practice-backend/internal/response"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func errorCode(t *testing.T, body []byte) response.ErrCode {
	t.Helper()
	var r response.Response
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatalf("decode body: %v (%s)", err, body)
	}
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// ─── Identity ─────────────────────────────────────────────────────────

func newIdentityRouter(t *testing.T) (*gin.Engine, *identity.JWTProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	provider := identity.NewJWTProvider("test-secret")
	resolver := identity.NewResolver(provider, rdb, time.Minute, zerolog.Nop())

	echo := func(c *gin.Context) {
		id := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
	}
	r := gin.New()
	r.GET("/learner", RequireLearner(resolver), echo)
	r.GET("/author", RequireAuthor(resolver), echo)
	r.GET("/ws", RequireLearnerWS(resolver), echo)
	return r, provider
}

func TestRequireRole(t *testing.T) {
	r, provider := newIdentityRouter(t)
	learnerID := uuid.New()
	learnerToken, err := provider.Issue(learnerID, identity.RoleLearner, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	authorToken, _ := provider.Issue(uuid.New(), identity.RoleAuthor, time.Hour)
	forged, _ := identity.NewJWTProvider("other-secret").Issue(learnerID, identity.RoleLearner, time.Hour)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"MissingToken", "/learner", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"MalformedHeader", "/learner", "Token " + learnerToken, http.StatusUnauthorized, response.ErrTokenRequired},
		{"ForgedToken", "/learner", "Bearer " + forged, http.StatusUnauthorized, response.ErrTokenInvalid},
		{"WrongRole", "/learner", "Bearer " + authorToken, http.StatusForbidden, response.ErrLearnerAccessOnly},
		{"AuthorOnly", "/author", "Bearer " + learnerToken, http.StatusForbidden, response.ErrAuthorAccessOnly},
		{"Learner", "/learner", "Bearer " + learnerToken, http.StatusOK, ""},
		{"Author", "/author", "Bearer " + authorToken, http.StatusOK, ""},
		{"WSIgnoresHeader", "/ws", "Bearer " + learnerToken, http.StatusUnauthorized, response.ErrTokenRequired},
		{"WSQueryToken", "/ws?token=" + learnerToken, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if got := errorCode(t, rec.Body.Bytes()); got != tt.wantErr {
					t.Fatalf("code = %s, want %s", got, tt.wantErr)
				}
			}
		})
	}
}

// ─── Rate limit ───────────────────────────────────────────────────────

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit("10.0.0.1"); code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i+1, code)
		}
	}
	if code := hit("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status = %d, want 429", code)
	}
	if code := hit("10.0.0.2"); code != http.StatusNoContent {
		t.Fatalf("other client: status = %d", code)
	}
}

func TestRateLimiter_CleanupEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	rl.allow("10.0.0.1")
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.allow("10.0.0.2")

	rl.cleanup()

	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Fatal("idle visitor not evicted")
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Fatal("active visitor evicted")
	}
}

// ─── Brotli ───────────────────────────────────────────────────────────

func TestBrotli(t *testing.T) {
	large := bytes.Repeat([]byte("evaporation condensation precipitation "), 100)
	small := []byte("ok")

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.Data(http.StatusOK, "text/plain", large) })
	r.GET("/small", func(c *gin.Context) { c.Data(http.StatusOK, "text/plain", small) })
	r.GET("/chunked", func(c *gin.Context) {
		c.Status(http.StatusOK)
		for i := 0; i < 4; i++ {
			_, _ = c.Writer.Write(large[:len(large)/4])
		}
	})

	get := func(path, accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if accept != "" {
			req.Header.Set("Accept-Encoding", accept)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) []byte {
		t.Helper()
		if got := rec.Header().Get("Content-Encoding"); got != "br" {
			t.Fatalf("Content-Encoding = %q, want br", got)
		}
		out, err := io.ReadAll(brotli.NewReader(rec.Body))
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		return out
	}

	t.Run("Large", func(t *testing.T) {
		if out := decode(t, get("/large", "gzip, br")); !bytes.Equal(out, large) {
			t.Fatalf("round trip mismatch: %d bytes", len(out))
		}
	})

	t.Run("Chunked", func(t *testing.T) {
		want := bytes.Repeat(large[:len(large)/4], 4)
		if out := decode(t, get("/chunked", "br")); !bytes.Equal(out, want) {
			t.Fatalf("round trip mismatch: %d bytes", len(out))
		}
	})

	t.Run("SmallPassesThrough", func(t *testing.T) {
		rec := get("/small", "br")
		if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != "ok" {
			t.Fatalf("small body altered: %q %q", rec.Header().Get("Content-Encoding"), rec.Body.String())
		}
	})

	t.Run("NotAccepted", func(t *testing.T) {
		rec := get("/large", "gzip")
		if rec.Header().Get("Content-Encoding") != "" || !bytes.Equal(rec.Body.Bytes(), large) {
			t.Fatal("body compressed without br in Accept-Encoding")
		}
	})
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

// ─── Access log ───────────────────────────────────────────────────────

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(response.RequestIDMiddleware(), AccessLog(zerolog.New(&buf)))
	r.GET("/attempts/:attempt_id", func(c *gin.Context) { c.Status(http.StatusConflict) })

	req := httptest.NewRequest(http.MethodGet, "/attempts/42", nil)
	req.Header.Set(response.HeaderRequestID, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line struct {
		Level     string `json:"level"`
		RequestID string `json:"request_id"`
		Route     string `json:"route"`
		Status    int    `json:"status"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line.Level != "warn" || line.RequestID != "req-1" || line.Route != "/attempts/:attempt_id" || line.Status != http.StatusConflict {
		t.Fatalf("log line = %+v", line)
	}
}
