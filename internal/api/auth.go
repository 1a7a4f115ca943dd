package api

import (
	"errors"
	"net/http"
	"strings"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, caller *models.Identity)

// authenticated resolves the bearer token into a verified identity before
// calling next.
func (s *HTTPServer) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}
		if s.verifier == nil {
			s.logger.Error().Msg("no token verifier configured")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		identity, err := s.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "Unauthorized or invalid user")
				return
			}
			s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("token verification failed")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if identity == nil || identity.ID == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized or invalid user")
			return
		}

		next(w, r, identity)
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
