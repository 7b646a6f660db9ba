package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jfperusse/chainlit/internal/domain"
	apperrors "github.com/jfperusse/chainlit/internal/platform/errors"
)

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/auth/login", s.handleLogin, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperrors.ValidationError("email and password are required")
	}

	ctx := c.Request().Context()
	user, serverSession, err := s.app.Login(ctx, req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return apperrors.UnauthorizedError("invalid email or password")
	}
	if err != nil {
		return apperrors.InternalError("failed to log in", err)
	}

	// Issue a fresh cookie session so a pre-auth session ID cannot be
	// replayed after login.
	old, err := s.sessionStore.Get(c.Request(), sessionName)
	if err == nil && !old.IsNew {
		old.Options.MaxAge = -1
		_ = old.Save(c.Request(), c.Response().Writer)
	}
	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		return apperrors.InternalError("failed to create session", err)
	}
	session.Values[sessionKeyToken] = serverSession.Token
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID, "email", user.Email)

	if err := c.JSON(http.StatusOK, userToResponse(user)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleLogout revokes the server session and clears the cookie. It succeeds
// even when no session is present so clients can always converge on a
// logged-out state.
func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()

	if token := s.sessionToken(c); token != "" {
		if err := s.app.Logout(ctx, token); err != nil {
			slog.ErrorContext(ctx, "Failed to revoke server session during logout", "error", err)
		}
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return apperrors.InternalError("failed to create session during logout", err)
		}
	}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
