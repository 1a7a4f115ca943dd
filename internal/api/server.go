package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"consultdesk/internal/config"
	"consultdesk/internal/domain"
	"consultdesk/internal/logging"
	"consultdesk/internal/service"

	"github.com/rs/zerolog"
)

// Services are the use cases the HTTP layer dispatches to.
type Services struct {
	Users         *service.UserService
	Consultations *service.ConsultationService
	Availability  *service.AvailabilityService
	Stotras       *service.StotraService
}

// Options carries the optional collaborators of the HTTP server.
type Options struct {
	Verifier   domain.TokenVerifier
	RateLimits domain.RateLimitRepository
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// Now is used for export file names; defaults to time.Now.
	Now func() time.Time
}

// HTTPServer exposes the consultation API.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	verifier domain.TokenVerifier
	limiter  *rateLimiter
	ready    func(ctx context.Context) error
	now      func() time.Time
	logger   zerolog.Logger
	mux      *http.ServeMux
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, services Services, opts Options, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		services: services,
		verifier: opts.Verifier,
		limiter:  newRateLimiter(cfg.RateLimit, opts.RateLimits),
		ready:    opts.Ready,
		now:      opts.Now,
		logger:   logging.Component(logger, "http"),
		mux:      http.NewServeMux(),
	}
	if srv.now == nil {
		srv.now = time.Now
	}

	srv.routes()

	handler := srv.requestID(srv.accessLog(srv.recoverer(srv.cors(srv.rateLimit(srv.limitBody(srv.mux))))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	s.mux.HandleFunc("GET /api/auth", s.authenticated(s.handleAuthSync))
	s.mux.HandleFunc("POST /api/auth", s.authenticated(s.handleAuthRegister))

	s.mux.HandleFunc("GET /api/availability", s.handleAvailabilityList)
	s.mux.HandleFunc("POST /api/availability", s.authenticated(s.handleAvailabilityCreate))
	s.mux.HandleFunc("DELETE /api/availability", s.authenticated(s.handleAvailabilityDelete))

	s.mux.HandleFunc("POST /api/consultations", s.authenticated(s.handleConsultationCreate))
	s.mux.HandleFunc("GET /api/consultations", s.authenticated(s.handleConsultationList))

	s.mux.HandleFunc("GET /api/dashboard", s.authenticated(s.handleDashboard))
	s.mux.HandleFunc("DELETE /api/dashboard/consultations/{id}", s.authenticated(s.handleCancelOwn))

	s.mux.HandleFunc("PATCH /api/admin/consultations/{id}", s.authenticated(s.handleAdminUpdate))
	s.mux.HandleFunc("GET /api/admin/consultations/export", s.authenticated(s.handleAdminExport))

	s.mux.HandleFunc("GET /api/stotras", s.handleStotras)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// routeLabel returns the matched route pattern for metrics.
func (s *HTTPServer) routeLabel(r *http.Request) string {
	_, pattern := s.mux.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}
