package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfperusse/chainlit/internal/domain"
)

const sessionCookieName = "chainlit_session"

// fakeBackend simulates the auth API: login issues a cookie, /user
// resolves it.
type fakeBackend struct {
	userID   uuid.UUID
	email    string
	password string
	failures atomic.Int32 // remaining 500s to serve on /user
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != b.email || body.Password != b.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "tok-1", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if b.failures.Load() > 0 {
			b.failures.Add(-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           b.userID.String(),
			"email":        b.email,
			"display_name": "Test User",
			"roles":        []string{"user"},
		})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{
		userID:   uuid.New(),
		email:    "u1@example.com",
		password: "hunter2-but-longer",
	}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	require.NoError(t, err)
	return client, backend
}

func TestCurrentUser_WithoutSession(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.CurrentUser(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginThenCurrentUser(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.Login(context.Background(), backend.email, backend.password)
	require.NoError(t, err)

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.userID, user.ID)
	assert.Equal(t, backend.email, user.Email)
	assert.Equal(t, "Test User", user.DisplayName)
	assert.Equal(t, []string{"user"}, user.Roles)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.Login(context.Background(), backend.email, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogout_DropsSession(t *testing.T) {
	client, backend := newTestClient(t)

	require.NoError(t, client.Login(context.Background(), backend.email, backend.password))
	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background()))

	_, err = client.CurrentUser(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUserResource_RetriesTransientFailures(t *testing.T) {
	client, backend := newTestClient(t)
	require.NoError(t, client.Login(context.Background(), backend.email, backend.password))

	backend.failures.Store(2)

	resource := NewUserResource(client, time.Minute, clockwork.NewRealClock())
	snap := resource.Mutate(context.Background())

	require.NoError(t, snap.Err)
	require.True(t, snap.HasData)
	assert.Equal(t, backend.userID, snap.Data.ID)
}

func TestUserResource_UnauthorizedIsNotRetried(t *testing.T) {
	client, _ := newTestClient(t)

	resource := NewUserResource(client, time.Minute, clockwork.NewRealClock())
	snap := resource.Mutate(context.Background())

	assert.ErrorIs(t, snap.Err, domain.ErrUnauthorized)
	assert.False(t, snap.HasData)
}

func TestCurrentUser_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	client, backend := newTestClient(t)
	require.NoError(t, client.Login(context.Background(), backend.email, backend.password))

	backend.failures.Store(100)

	for i := 0; i < breakerFailureThreshold; i++ {
		_, err := client.CurrentUser(context.Background())
		require.Error(t, err)
	}

	_, err := client.CurrentUser(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
