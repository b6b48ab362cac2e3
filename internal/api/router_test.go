package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/logsink"
	redisrepo "github.com/jafarshop/storefront/internal/repository/redis"
)

const testAdminKey = "operator-key-0123456789"

type testEnv struct {
	router *gin.Engine
	repos  *repository.Repositories

	mu          sync.Mutex
	meStatus    int
	seenCookies []string
}

func setupTestRouter(t *testing.T, adminKeyHash string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rc.Close()
		mr.Close()
	})

	env := &testEnv{
		repos: &repository.Repositories{
			Session: redisrepo.NewSessionRepository(rc, time.Hour, zap.NewNop()),
			Event:   logsink.NewEventRepository(zap.NewNop()),
		},
		meStatus: http.StatusOK,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/customer/me":
			env.mu.Lock()
			env.seenCookies = append(env.seenCookies, r.Header.Get("Cookie"))
			status := env.meStatus
			env.mu.Unlock()
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"session expired"}`))
				return
			}
			_, _ = w.Write([]byte(`{"_id":"cust-1","name":"Asha","mobile":"9876543210","addresses":[],"cart":[],"wishlist":[]}`))
		case "/customer/send-otp":
			_, _ = w.Write([]byte(`{"success":true,"message":"OTP sent"}`))
		default:
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Environment: "test",
		Backend:     config.BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		Session:     config.SessionConfig{CookieName: "sf_session", TTL: time.Hour},
		Payment:     config.PaymentConfig{Currency: "INR", MerchantName: "Test"},
		OTP:         config.OTPConfig{Cooldown: 10 * time.Minute},
		Admin:       config.AdminConfig{KeyHash: adminKeyHash},
	}
	client := backend.NewClient(cfg.Backend, zap.NewNop())
	env.router = NewRouter(cfg, client, env.repos, zap.NewNop())
	return env
}

func (e *testEnv) do(method, path, body, sessionID string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sf_session", Value: sessionID})
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	sessionID := uuid.New().String()
	require.NoError(t, e.repos.Session.SaveBackendCookie(context.Background(), sessionID, "token=abc123"))
	return sessionID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouter_Health(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestRouter_AnonymousSessionGetsCookie(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(http.MethodGet, "/v1/cart", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sf_session", cookies[0].Name)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)
	assert.True(t, cookies[0].HttpOnly)

	// No backend session means the customer is never fetched
	env.mu.Lock()
	defer env.mu.Unlock()
	assert.Empty(t, env.seenCookies)
}

func TestRouter_InvalidSessionCookieIsReplaced(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(http.MethodGet, "/v1/auth/login", "", "not-a-uuid", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "not-a-uuid", cookies[0].Value)
}

func TestRouter_MeForwardsBackendCookie(t *testing.T) {
	env := setupTestRouter(t, "")
	sessionID := env.login(t)

	w := env.do(http.MethodGet, "/v1/me", "", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cust-1", decodeBody(t, w)["_id"])

	env.mu.Lock()
	defer env.mu.Unlock()
	assert.Equal(t, []string{"token=abc123"}, env.seenCookies)
}

func TestRouter_ExpiredBackendSession(t *testing.T) {
	env := setupTestRouter(t, "")
	sessionID := env.login(t)
	env.meStatus = http.StatusUnauthorized

	w := env.do(http.MethodGet, "/v1/orders", "", sessionID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session expired, please login again", decodeBody(t, w)["error"])
}

func TestRouter_BackendOutageIsBadGateway(t *testing.T) {
	env := setupTestRouter(t, "")
	sessionID := env.login(t)
	env.meStatus = http.StatusInternalServerError

	w := env.do(http.MethodGet, "/v1/me", "", sessionID, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_SendOTP(t *testing.T) {
	env := setupTestRouter(t, "")
	sessionID := uuid.New().String()

	w := env.do(http.MethodPost, "/v1/auth/otp", `{"mobile":"123"}`, sessionID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, map[string]interface{}{"mobile": "10 digits"}, body["details"])

	w = env.do(http.MethodPost, "/v1/auth/otp", `{"mobile":"9876543210"}`, sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "OTP", body["step"])
	assert.Equal(t, "10:00", body["cooldown_display"])

	// Second request inside the cooldown
	w = env.do(http.MethodPost, "/v1/auth/otp", `{"mobile":"9876543210"}`, sessionID, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouter_MissingBodyFailsBinding(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(http.MethodPost, "/v1/auth/otp", `{}`, uuid.New().String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation failed", decodeBody(t, w)["error"])
}

func TestRouter_AdminNotConfigured(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(http.MethodGet, "/v1/admin/sessions/"+uuid.New().String(), "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_AdminSessions(t *testing.T) {
	hash, err := middleware.HashAPIKey(testAdminKey)
	require.NoError(t, err)
	env := setupTestRouter(t, hash)
	sessionID := env.login(t)
	auth := map[string]string{"Authorization": "Bearer " + testAdminKey}

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic " + testAdminKey}, http.StatusUnauthorized},
		{"wrong key", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid key", auth, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/v1/admin/sessions/"+sessionID, "", "", tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := env.do(http.MethodGet, "/v1/admin/sessions/not-a-uuid", "", "", auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/v1/admin/sessions/"+sessionID+"/events?limit=5", "", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])

	w = env.do(http.MethodDelete, "/v1/admin/sessions/"+sessionID, "", "", auth)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/v1/admin/sessions/"+sessionID, "", "", auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Admin routes do not hand out storefront sessions
	assert.Empty(t, w.Result().Cookies())
}
