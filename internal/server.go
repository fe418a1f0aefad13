package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/annoflow/annoflow/internal/allocator"
	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/config"
	"github.com/annoflow/annoflow/internal/event"
	"github.com/annoflow/annoflow/internal/pushnotification"
	"github.com/annoflow/annoflow/internal/review"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/internal/workflow"
	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/clog"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	taskServer             *task.Server
	annotatorServer        *annotator.Server
	allocatorServer        *allocator.Server
	workflowServer         *workflow.Server
	reviewServer           *review.Server
	eventServer            *event.Server
	pushNotificationServer *pushnotification.Server
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	annotatorServer *annotator.Server,
	allocatorServer *allocator.Server,
	workflowServer *workflow.Server,
	reviewServer *review.Server,
	eventServer *event.Server,
	pushNotificationServer *pushnotification.Server,
) *Server {
	return &Server{
		env:                    env,
		taskServer:             taskServer,
		annotatorServer:        annotatorServer,
		allocatorServer:        allocatorServer,
		workflowServer:         workflowServer,
		reviewServer:           reviewServer,
		eventServer:            eventServer,
		pushNotificationServer: pushNotificationServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it (e.g. on shutdown
// signal) also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		s.taskServer.RegisterRoutes(r)
		s.annotatorServer.RegisterRoutes(r)
		s.allocatorServer.RegisterRoutes(r)
		s.workflowServer.RegisterRoutes(r)
		s.reviewServer.RegisterRoutes(r)
		s.pushNotificationServer.RegisterRoutes(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	// The event stream writes its body incrementally and must bypass the
	// JSON response middleware.
	mux.Handle("/api/events", clog.SlogChiMiddleware()(s.eventServer))
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for the health endpoint.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
