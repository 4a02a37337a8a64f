package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"kos_chat/internal/config"
	"kos_chat/internal/domain"
	"kos_chat/internal/repository"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var storedSession = domain.Session{Token: "tok", UserID: "u1", Role: domain.RoleTenant}

func newSessionRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	store := repository.NewMemorySessionStore()
	sid, err := store.Save(context.Background(), storedSession)
	require.NoError(t, err)

	auth := NewAuthMiddleware(store, logger.Nop())
	router := gin.New()
	router.GET("/whoami", auth.RequireSession(), func(c *gin.Context) {
		sess, ok := GetSession(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, sess)
	})
	return router, sid
}

func TestRequireSession(t *testing.T) {
	router, sid := newSessionRouter(t)

	jwtToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u7", "role": "OWNER"}).SignedString([]byte("k"))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u7", "exp": time.Now().Add(-time.Hour).Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	ts := []struct {
		name           string
		target         string
		headers        map[string]string
		expectedStatus int
		expectedUser   string
		expectedRole   domain.Role
		expectedError  string
	}{
		{name: "session header", target: "/whoami", headers: map[string]string{HeaderSessionID: sid}, expectedStatus: http.StatusOK, expectedUser: "u1", expectedRole: domain.RoleTenant},
		{name: "sid query", target: "/whoami?sid=" + sid, expectedStatus: http.StatusOK, expectedUser: "u1", expectedRole: domain.RoleTenant},
		{name: "bearer with user headers", target: "/whoami", headers: map[string]string{"Authorization": "Bearer opaque", HeaderUserID: "u5", HeaderUserRole: "tenant"}, expectedStatus: http.StatusOK, expectedUser: "u5", expectedRole: domain.RoleTenant},
		{name: "bearer jwt claims", target: "/whoami", headers: map[string]string{"Authorization": "Bearer " + jwtToken}, expectedStatus: http.StatusOK, expectedUser: "u7", expectedRole: domain.RoleOwner},
		{name: "unknown session", target: "/whoami", headers: map[string]string{HeaderSessionID: "nope"}, expectedStatus: http.StatusUnauthorized, expectedError: "Authentication required"},
		{name: "nothing", target: "/whoami", expectedStatus: http.StatusUnauthorized, expectedError: "Authentication required"},
		{name: "bearer without user", target: "/whoami", headers: map[string]string{"Authorization": "Bearer opaque"}, expectedStatus: http.StatusUnauthorized, expectedError: "Authentication required"},
		{name: "expired jwt", target: "/whoami", headers: map[string]string{"Authorization": "Bearer " + expired}, expectedStatus: http.StatusUnauthorized, expectedError: "Session expired"},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var sess domain.Session
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
				assert.Equal(t, tt.expectedUser, sess.UserID)
				assert.Equal(t, tt.expectedRole, sess.Role)
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body["error"])
			assert.Equal(t, "/login", body["redirect"])
		})
	}
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, int, error) {
	args := m.Called(ctx, subject, limit, window)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func TestRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{Requests: 2, Window: time.Minute}

	ts := []struct {
		name           string
		allowed        bool
		remaining      int
		err            error
		expectedStatus int
	}{
		{name: "allowed", allowed: true, remaining: 1, expectedStatus: http.StatusOK},
		{name: "exceeded", allowed: false, remaining: 0, expectedStatus: http.StatusTooManyRequests},
		{name: "redis down", err: errors.New("connection refused"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRateLimitService)
			svc.On("Allow", mock.Anything, "user:u1", 2, time.Minute).Return(tt.allowed, tt.remaining, tt.err)
			limiter := NewRateLimitMiddleware(svc, cfg, logger.Nop())

			router := gin.New()
			router.GET("/limited", func(c *gin.Context) {
				c.Set(SessionKey, storedSession)
				c.Next()
			}, limiter.Limit(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestRateLimit_DisabledSkipsService(t *testing.T) {
	svc := new(MockRateLimitService)
	limiter := NewRateLimitMiddleware(svc, config.RateLimitConfig{}, logger.Nop())

	router := gin.New()
	router.GET("/free", limiter.Limit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/free", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorHandler(t *testing.T) {
	ts := []struct {
		name           string
		err            error
		expectedStatus int
		expectRedirect bool
	}{
		{name: "not connected", err: apperrors.ErrNotConnected, expectedStatus: http.StatusServiceUnavailable},
		{name: "backend 404", err: &apperrors.BackendError{Status: 404}, expectedStatus: http.StatusNotFound},
		{name: "backend 500", err: &apperrors.BackendError{Status: 500}, expectedStatus: http.StatusBadGateway},
		{name: "unauthorized", err: apperrors.ErrUnauthorized, expectedStatus: http.StatusUnauthorized, expectRedirect: true},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ErrorHandler())
			router.GET("/fail", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
			if tt.expectRedirect {
				assert.Equal(t, "/login", body["redirect"])
			} else {
				assert.NotContains(t, body, "redirect")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		id, _ := c.Get(RequestIDKey)
		c.String(http.StatusOK, id.(string))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	const clientID = "4f1c5d1e-8a5c-4c39-9a57-1f1c0f3b2a11"
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, clientID)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, clientID, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(HeaderRequestID))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger.Nop()))
	router.GET("/rooms/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r1", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
