package middleware

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

type memorySettings struct {
	mu     sync.Mutex
	values map[string]db.Setting
}

func (m *memorySettings) GetSetting(_ context.Context, key string) (*db.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.values[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memorySettings) SetSetting(_ context.Context, key, value string, encrypted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = db.Setting{Key: key, Value: value, Encrypted: encrypted}
	return nil
}

type AuthTestSuite struct {
	suite.Suite
	settings *memorySettings
	clock    *clock.MockClock
	auth     *AuthMiddleware
	router   *gin.Engine
}

func (s *AuthTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.settings = &memorySettings{values: make(map[string]db.Setting)}
	s.clock = clock.NewMockClock(time.Now())
	s.auth = s.newAuth()
}

func (s *AuthTestSuite) newAuth() *AuthMiddleware {
	auth, err := NewAuthMiddleware(context.Background(), s.settings, s.clock, false)
	s.Require().NoError(err)

	s.router = gin.New()
	api := s.router.Group("/api")
	auth.RegisterRoutes(api)
	api.GET("/protected", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return auth
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

func (s *AuthTestSuite) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func (s *AuthTestSuite) setup(password string) *http.Cookie {
	rec := s.do(http.MethodPost, "/api/auth/setup", gin.H{"password": password})
	s.Require().Equal(http.StatusOK, rec.Code)
	cookie := authCookie(rec)
	s.Require().NotNil(cookie)
	return cookie
}

func (s *AuthTestSuite) TestSecretIsPersisted() {
	secret, ok := s.settings.values[settingsKeyJWTSecret]
	s.Require().True(ok)
	s.Len(secret.Value, secretLength*2)
	s.True(secret.Encrypted)

	cookie := s.setup("hunter22")
	s.newAuth()
	rec := s.do(http.MethodGet, "/api/protected", nil, cookie)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthTestSuite) TestSetupFlow() {
	rec := s.do(http.MethodGet, "/api/auth/status", nil)
	s.JSONEq(`{"authenticated":false,"setup_required":true}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "whatever"})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/setup", gin.H{"password": "short"})
	s.Equal(http.StatusBadRequest, rec.Code)

	cookie := s.setup("hunter22")

	rec = s.do(http.MethodGet, "/api/auth/status", nil, cookie)
	s.JSONEq(`{"authenticated":true,"setup_required":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/setup", gin.H{"password": "another1"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthTestSuite) TestLogin() {
	s.setup("hunter22")

	rec := s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "wrong-password"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Nil(authCookie(rec))

	rec = s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "hunter22"})
	s.Equal(http.StatusOK, rec.Code)
	cookie := authCookie(rec)
	s.Require().NotNil(cookie)
	s.True(cookie.HttpOnly)

	rec = s.do(http.MethodGet, "/api/protected", nil, cookie)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthTestSuite) TestRequireAuth() {
	cookie := s.setup("hunter22")

	rec := s.do(http.MethodGet, "/api/protected", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/protected", nil, &http.Cookie{Name: cookieName, Value: "garbage"})
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	bearer := httptest.NewRecorder()
	s.router.ServeHTTP(bearer, req)
	s.Equal(http.StatusOK, bearer.Code)
}

func (s *AuthTestSuite) TestTokenExpires() {
	cookie := s.setup("hunter22")

	s.clock.Add(tokenDuration + time.Minute)
	rec := s.do(http.MethodGet, "/api/protected", nil, cookie)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthTestSuite) TestChangePassword() {
	cookie := s.setup("hunter22")

	rec := s.do(http.MethodPut, "/api/auth/password", gin.H{"current_password": "nope-nope", "new_password": "swordfish"}, cookie)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/api/auth/password", gin.H{"current_password": "hunter22", "new_password": "swordfish"}, cookie)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "hunter22"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "swordfish"})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthTestSuite) TestLogoutClearsCookie() {
	s.setup("hunter22")

	rec := s.do(http.MethodPost, "/api/auth/logout", nil)
	s.Equal(http.StatusOK, rec.Code)
	cookie := authCookie(rec)
	s.Require().NotNil(cookie)
	s.Empty(cookie.Value)
	s.Less(cookie.MaxAge, 0)
}
