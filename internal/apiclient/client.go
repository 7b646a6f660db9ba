// Package apiclient implements the HTTP client for the backend auth API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/fetch"
	"github.com/jfperusse/chainlit/internal/metrics"
	"github.com/jfperusse/chainlit/internal/platform/retry"
)

const (
	requestTimeout = 10 * time.Second

	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

var whoAmIRetryPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// Client talks to the backend auth endpoints. It keeps the session cookie
// issued at login in its cookie jar, so CurrentUser is authenticated the
// same way a browser would be.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "whoami",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues("whoami").Set(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			// An unauthenticated response is a healthy backend answer,
			// not a reason to open the breaker.
			return err == nil || errors.Is(err, domain.ErrUnauthorized)
		},
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Jar: jar, Timeout: requestTimeout},
		breaker:    breaker,
	}, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

type userPayload struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// CurrentUser performs the who-am-I read: GET /user.
// Returns domain.ErrUnauthorized when no valid session cookie is held.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetchCurrentUser(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.User), nil
}

func (c *Client) fetchCurrentUser(ctx context.Context) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("who-am-I request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload userPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("failed to decode user response: %w", err)
		}
		return payload.toDomain()
	case http.StatusUnauthorized:
		return nil, domain.ErrUnauthorized
	default:
		return nil, fmt.Errorf("who-am-I returned unexpected status %d", resp.StatusCode)
	}
}

func (p userPayload) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", p.ID, err)
	}
	return &domain.User{
		ID:          id,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Roles:       p.Roles,
	}, nil
}

// Login authenticates with email and password. On success the session
// cookie lands in the jar and subsequent CurrentUser calls are
// authenticated. Returns domain.ErrInvalidCredentials on a 401.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return domain.ErrInvalidCredentials
	default:
		return fmt.Errorf("login returned unexpected status %d", resp.StatusCode)
	}
}

// Logout revokes the server-side session. The jar's cookie is cleared by
// the Set-Cookie response header.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout returned unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NewUserResource wraps the who-am-I read in a revalidating resource.
// Transport errors are retried with backoff; an unauthenticated answer is
// permanent and surfaces immediately.
func NewUserResource(client *Client, ttl time.Duration, clock clockwork.Clock) *fetch.Resource[*domain.User] {
	fetcher := func(ctx context.Context) (*domain.User, error) {
		return retry.Do(ctx, whoAmIRetryPolicy, classifyWhoAmIError, func() (*domain.User, error) {
			return client.CurrentUser(ctx)
		})
	}
	return fetch.NewResource("user", fetcher, ttl, clock)
}

func classifyWhoAmIError(err error) retry.Action {
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, gobreaker.ErrOpenState) {
		return retry.Stop
	}
	return retry.Retry
}
