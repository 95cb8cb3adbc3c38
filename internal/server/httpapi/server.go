// Package httpapi exposes the relay's operations over HTTP/JSON. Handlers
// stay thin: decode the request, pull a proof from it where the operation is
// protected, call the service, and map the error taxonomy onto status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chicrypt/relay/internal/logging"
	"github.com/chicrypt/relay/internal/server/services"
)

type HTTPServer struct {
	address     string
	baseURL     string
	logger      logging.Logger
	identities  *services.IdentityService
	challenges  *services.ChallengeService
	gate        *services.AuthGate
	permissions *services.PermissionService
	messages    *services.MessageService
}

func NewHTTPServer(address, baseURL string, l logging.Logger,
	is *services.IdentityService, cs *services.ChallengeService, gate *services.AuthGate,
	ps *services.PermissionService, ms *services.MessageService) *HTTPServer {
	return &HTTPServer{
		address:     address,
		baseURL:     baseURL,
		logger:      l.With("module", "http_server"),
		identities:  is,
		challenges:  cs,
		gate:        gate,
		permissions: ps,
		messages:    ms,
	}
}

// Router builds the route table. Split out from Run so tests can mount it on
// httptest.Server.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/register", s.handleRegister)
	r.Post("/check_contact", s.handleCheckContact)
	r.Post("/challenge_request", s.handleChallengeRequest)
	r.Post("/send", s.handleSend)
	r.Post("/fetch", s.handleFetch)
	r.Post("/ack", s.handleAck)
	r.Post("/request_message_permission", s.handleRequestPermission)
	r.Post("/get_message_requests", s.handleGetRequests)
	r.Post("/respond_message_request", s.handleRespondRequest)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// requestLogger logs method, path, status and latency for every request.
func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
