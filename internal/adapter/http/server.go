package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/servicebay/internal/adapter/http/middleware"
	"github.com/fixora/servicebay/internal/adapter/http/response"
	"github.com/fixora/servicebay/internal/infra/logger"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	router *mux.Router
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// NewServer creates a new HTTP server. metricsHandler and rateLimit may be nil.
func NewServer(
	config ServerConfig,
	recordHandler *ServiceRecordHandler,
	metricsHandler http.Handler,
	rateLimit *middleware.RateLimitMiddleware,
	log logger.Logger,
) *Server {
	router := NewRouter(recordHandler, metricsHandler, rateLimit, log)

	return &Server{
		addr:   config.Addr,
		router: router,
		logger: log,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      middleware.CORSMiddleware(config.CORSOrigins)(router),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// NewRouter wires routes and middleware. CORS is applied outside the router
// so preflight requests do not depend on route method matching.
func NewRouter(
	recordHandler *ServiceRecordHandler,
	metricsHandler http.Handler,
	rateLimit *middleware.RateLimitMiddleware,
	log logger.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CorrelationIDMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))
	if rateLimit != nil {
		router.Use(rateLimit.RateLimit)
	}

	recordHandler.RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "ok", nil)
	}).Methods("GET")

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return router
}

// Handler returns the root handler including CORS
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info(r.Context(), "HTTP request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).String(),
			})
		})
	}
}

func recoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "Panic recovered", nil, map[string]interface{}{
						"panic": rec,
						"path":  r.URL.Path,
					})
					response.InternalServerError(w, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
