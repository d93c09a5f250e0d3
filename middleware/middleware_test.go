package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/cache"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const secret = "middleware-test-secret-0123456789"

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func tokenFor(t *testing.T, role models.UserRole, now func() time.Time) string {
	t.Helper()
	tm := services.NewTokenManager(secret, 15*time.Minute, services.WithClock(now))
	token, _, err := tm.Issue(&models.User{ID: "u1", Email: "ada@x.com", Name: "Ada", Role: role})
	require.NoError(t, err)
	return token
}

func authRouter() *gin.Engine {
	tokens := services.NewTokenManager(secret, 15*time.Minute)
	r := gin.New()
	r.GET("/me", AuthRequired(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentIdentity(c).UserID})
	})
	r.GET("/staff", AuthRequired(tokens), StaffOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/maybe", OptionalAuth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"anonymous": CurrentIdentity(c) == nil})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	r := authRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, decode(t, w)["expired"])

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleCustomer, time.Now))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode(t, w)["id"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tokenFor(t, models.RoleCustomer, time.Now)})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired_ExpiredTokenIsFlagged(t *testing.T) {
	r := authRouter()
	stale := tokenFor(t, models.RoleCustomer, func() time.Time { return time.Now().Add(-time.Hour) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["expired"])
	assert.Equal(t, false, body["success"])
}

func TestRoleRequired(t *testing.T) {
	r := authRouter()
	for role, want := range map[models.UserRole]int{
		models.RoleCustomer: http.StatusForbidden,
		models.RoleStaff:    http.StatusOK,
		models.RoleAdmin:    http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role, time.Now))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestOptionalAuth(t *testing.T) {
	r := authRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/maybe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["anonymous"])

	req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWriteError_Bodies(t *testing.T) {
	r := gin.New()
	r.GET("/validation", func(c *gin.Context) {
		WriteError(c, apperrors.Validation("Validation failed",
			apperrors.FieldError{Field: "name", Message: "is required"},
			apperrors.FieldError{Field: "price", Message: "must be greater than 0"}))
	})
	r.GET("/internal", func(c *gin.Context) {
		WriteError(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	})
	r.GET("/transition", func(c *gin.Context) {
		WriteError(c, apperrors.InvalidTransition("nope").WithDetail("current_status", "delivered"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode(t, w)["errors"], 2)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["message"])
	assert.NotContains(t, w.Body.String(), "10.0.0.1")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transition", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, apperrors.CodeInvalidTransition, body["code"])
	assert.Equal(t, "delivered", body["current_status"])
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["message"])
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/", NewRateLimiter("test", 0.01, 2).Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCacheResponse_ServesStaleUntilTTL(t *testing.T) {
	store := cache.NewMemory(16, time.Minute)
	version := 1
	r := gin.New()
	r.GET("/menu", CacheResponse(store), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu?category=main", nil))
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.EqualValues(t, 1, decode(t, w)["version"])

	version = 2
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu?category=main", nil))
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.EqualValues(t, 1, decode(t, w)["version"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu?category=dessert", nil))
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.EqualValues(t, 2, decode(t, w)["version"])
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)), metrics.Handler())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])

	count := promtest.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/items/:id", "200"))
	assert.Equal(t, 1.0, count)
}
