package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"consultdesk/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes. Anything it does not
// recognise is logged and answered with a generic 500.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPreconditionFailed):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, "Internal Server Error")
		return
	}

	var svcErr *service.Error
	var valErr *service.ValidationError
	msg := err.Error()
	switch {
	case errors.As(err, &svcErr):
		msg = svcErr.Message
	case errors.As(err, &valErr):
		msg = valErr.Message
	}
	writeError(w, status, msg)
}

var errEmptyBody = errors.New("empty body")

// decodeJSON reads a JSON object body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		return err
	}
	return nil
}
