// Package supabase talks to the hosted backend through the community clients:
// gotrue-go for identities and postgrest-go for tables.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"consultdesk/internal/config"
	"consultdesk/internal/domain"

	"github.com/rs/zerolog"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"
)

const (
	restPath = "/rest/v1"
	authPath = "/auth/v1"

	codeUniqueViolation = "23505"
)

// RestError is a PostgREST rejection. postgrest-go only surfaces the error
// code and message, not the HTTP status.
type RestError struct {
	Code    string
	Message string
}

func (e *RestError) Error() string {
	return fmt.Sprintf("supabase: (%s) %s", e.Code, e.Message)
}

// AuthError is a non-2xx answer from the auth endpoint.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("supabase auth: http %d: %s", e.Status, e.Body)
}

// Client holds the table and auth clients for one project.
type Client struct {
	rest      *postgrest.Client
	auth      gotrue.Client
	transport *http.Transport
	logger    zerolog.Logger
}

// NewClient builds a client. Table calls use the service role key when set so
// row level security does not hide other users' rows from admin listings.
func NewClient(cfg config.SupabaseConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "supabase").Logger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	baseURL := strings.TrimRight(cfg.URL, "/")
	tableKey := cfg.ServiceRoleKey
	if tableKey == "" {
		tableKey = cfg.AnonKey
	}

	rest := postgrest.NewClient(baseURL+restPath, "public", map[string]string{
		"apikey":        cfg.AnonKey,
		"Authorization": "Bearer " + tableKey,
	})
	rest.Transport.Parent = &loggingTransport{next: transport, logger: l}

	auth := gotrue.New("", cfg.AnonKey).
		WithCustomGoTrueURL(baseURL + authPath).
		WithClient(http.Client{Timeout: timeout, Transport: &loggingTransport{next: transport, logger: l}})

	return &Client{rest: rest, auth: auth, transport: transport, logger: l}
}

// loggingTransport logs each call at debug level.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	ev := t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("supabase request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("supabase request")
	return resp, nil
}

var restErrorPattern = regexp.MustCompile(`^\(([^)]*)\) (.*)$`)

// translate maps postgrest-go errors onto RestError and the domain sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	m := restErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	restErr := &RestError{Code: m[1], Message: m[2]}
	if restErr.Code == codeUniqueViolation {
		return fmt.Errorf("%w: %w", domain.ErrConflict, restErr)
	}
	return restErr
}

// authStatus extracts the HTTP status from a gotrue-go error.
func authStatus(err error) (*AuthError, bool) {
	var status int
	msg := err.Error()
	if _, scanErr := fmt.Sscanf(msg, "response status code %d", &status); scanErr != nil {
		return nil, false
	}
	body := ""
	if i := strings.Index(msg, ": "); i >= 0 {
		body = msg[i+2:]
	}
	return &AuthError{Status: status, Body: body}, true
}

// IsAuthStatus reports whether err is an AuthError with the given status.
func IsAuthStatus(err error, status int) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Status == status
}

// exec runs a built query. postgrest-go has no context support, so a done
// context is only honoured before the call is sent.
func (c *Client) exec(ctx context.Context, q *postgrest.FilterBuilder, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if out == nil {
		_, _, err := q.Execute()
		return translate(err)
	}
	_, err := q.ExecuteTo(out)
	return translate(err)
}

// Ping checks that the auth service answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.auth.HealthCheck(); err != nil {
		if authErr, ok := authStatus(err); ok {
			return authErr
		}
		return fmt.Errorf("supabase health: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

var _ domain.TokenVerifier = (*Client)(nil)
