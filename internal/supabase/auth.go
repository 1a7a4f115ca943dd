package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/google/uuid"
)

// VerifyToken resolves a bearer token through the auth endpoint. Rejections
// by the provider map to domain.ErrInvalidToken; transport failures do not.
func (c *Client) VerifyToken(ctx context.Context, token string) (*models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.auth.WithToken(token).GetUser()
	if err != nil {
		authErr, ok := authStatus(err)
		if !ok {
			return nil, fmt.Errorf("verify token: %w", err)
		}
		switch authErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, authErr)
		}
		return nil, fmt.Errorf("verify token: %w", authErr)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return nil, domain.ErrInvalidToken
	}
	return &models.Identity{ID: resp.ID.String(), Email: resp.Email, Phone: resp.Phone}, nil
}
