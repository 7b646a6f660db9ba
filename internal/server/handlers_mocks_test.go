package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	loginFn                func(ctx context.Context, email, password string) (*domain.User, *domain.ServerSession, error)
	logoutFn               func(ctx context.Context, token string) error
	currentUserFn          func(ctx context.Context, token string) (*domain.User, error)
	resolveTrustedHeaderFn func(ctx context.Context, email string) (*domain.User, error)
	revokeAllSessionsFn    func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockAppService) Login(ctx context.Context, email, password string) (*domain.User, *domain.ServerSession, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockAppService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAppService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, token)
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockAppService) ResolveTrustedHeader(ctx context.Context, email string) (*domain.User, error) {
	if m.resolveTrustedHeaderFn != nil {
		return m.resolveTrustedHeaderFn(ctx, email)
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockAppService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	if m.revokeAllSessionsFn != nil {
		return m.revokeAllSessionsFn(ctx, userID)
	}
	return nil
}

// --- Test helpers ---

func testUser() *domain.User {
	return &domain.User{
		ID:          uuid.New(),
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Roles:       []string{"user"},
	}
}

func newTestConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		Port:               "0",
		SessionSecret:      "test-secret-key-32-bytes-long!!!",
		SessionTTL:         time.Hour,
		TrustedHeaderName:  "X-Forwarded-Email",
		LoginRatePerSecond: 100,
		LoginRateBurst:     100,
	}
}

func newTestServer(t *testing.T, app appService, opts ...func(*config.Config)) *Server {
	t.Helper()

	cfg := newTestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return NewServer(cfg, app, nil)
}

func withTrustedHeaderAuth() func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.TrustedHeaderAuth = true
	}
}

// doRequest runs a request through the full middleware and routing stack.
func doRequest(srv *Server, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
