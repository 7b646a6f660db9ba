package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jfperusse/chainlit/internal/domain"
	apperrors "github.com/jfperusse/chainlit/internal/platform/errors"
)

func (s *Server) registerAPIRoutes() {
	s.echo.GET("/user", s.handleCurrentUser)
}

type userResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

func userToResponse(user *domain.User) userResponse {
	return userResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       user.Roles,
	}
}

// handleCurrentUser answers the "who am I" poll. Trusted-header identities
// take precedence over cookie sessions when header auth is enabled.
func (s *Server) handleCurrentUser(c echo.Context) error {
	user, err := s.resolveUser(c)
	if errors.Is(err, domain.ErrUnauthorized) {
		return apperrors.UnauthorizedError("not authenticated")
	}
	if err != nil {
		return apperrors.InternalError("failed to resolve current user", err)
	}

	if err := c.JSON(http.StatusOK, userToResponse(user)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) resolveUser(c echo.Context) (*domain.User, error) {
	ctx := c.Request().Context()

	if s.config.TrustedHeaderAuth {
		if email := c.Request().Header.Get(s.config.TrustedHeaderName); email != "" {
			return s.app.ResolveTrustedHeader(ctx, email)
		}
	}

	token := s.sessionToken(c)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.app.CurrentUser(ctx, token)
}
