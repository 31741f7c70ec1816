package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func sign(t *testing.T, method jwt.SigningMethod, key any, claims JWTClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func claimsFor(userID, role string, ttl time.Duration) JWTClaims {
	return JWTClaims{
		UserID:   userID,
		Username: "desk",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func protected(roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/p", JWTAuth(testSecret), RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c).String())
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protected("staff", "admin")
	userID := uuid.NewString()

	w := get(r, "/p", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID, "staff", time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, w.Body.String())

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor(userID, "staff", time.Hour)),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID, "staff", -time.Minute)),
		"bad user id":  sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("desk", "staff", time.Hour)),
		"none alg":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claimsFor(userID, "staff", time.Hour)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(r, "/p", token).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := protected("admin")
	key := []byte(testSecret)

	w := get(r, "/p", sign(t, jwt.SigningMethodHS256, key, claimsFor(uuid.NewString(), "staff", time.Hour)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient permissions")

	w = get(r, "/p", sign(t, jwt.SigningMethodHS256, key, claimsFor(uuid.NewString(), "admin", time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWindowLimiter(t *testing.T) {
	l := newWindowLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, _ := l.allow("a", now)
	assert.True(t, ok)
	ok, _ = l.allow("a", now.Add(time.Second))
	assert.True(t, ok)
	ok, end := l.allow("a", now.Add(2*time.Second))
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), end)

	ok, _ = l.allow("b", now.Add(2*time.Second))
	assert.True(t, ok, "keys are counted separately")

	ok, _ = l.allow("a", now.Add(61*time.Second))
	assert.True(t, ok, "a new window starts once the old one ends")

	assert.Equal(t, 1, l.purge(now.Add(90*time.Second)), "only b's window has ended")
	assert.Equal(t, 1, l.purge(now.Add(3*time.Minute)))
	assert.Empty(t, l.entries)
}

func TestPurgeLoop(t *testing.T) {
	l := newWindowLimiter(1, time.Millisecond)
	l.allow("a", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := startPurge(ctx, l, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.entries) == 0
	}, time.Second, 5*time.Millisecond, "expired window is purged")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop still running after cancel")
	}
}

func TestRateLimitResponds429(t *testing.T) {
	r := gin.New()
	r.Use(rateLimit(newWindowLimiter(1, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, get(r, "/", "").Code)
	w := get(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := get(r, "/", "")
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-42", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://desk.example.com"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
