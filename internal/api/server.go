package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mev-engine/tx-simulator/internal/config"
	"github.com/mev-engine/tx-simulator/pkg/metrics"
	"github.com/rs/cors"
)

// Server implements the REST API server: POST /simulate and GET /health,
// plus the metrics scrape endpoint.
type Server struct {
	config      *config.Config
	server      *http.Server
	handlers    *Handlers
	rateLimiter *RateLimiter
}

// NewServer creates a new API server wired to the given handlers.
// collector may be nil; when set, rejected requests are counted
// alongside the simulation-outcome metrics it already tracks.
func NewServer(cfg *config.Config, handlers *Handlers, metricsHandler http.Handler, collector *metrics.Collector) *Server {
	rateLimiter := NewRateLimiter(100, 20, time.Minute, collector)

	s := &Server{
		config:      cfg,
		handlers:    handlers,
		rateLimiter: rateLimiter,
	}

	s.setupServer(metricsHandler)

	return s
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("Starting API server on %s:%d", s.config.Server.Host, s.config.Server.Port)

	go s.rateLimiterCleanup(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	log.Println("API server started successfully")
	return nil
}

// Stop stops the API server.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Stopping API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	log.Println("API server stopped")
	return nil
}

// GetRouter returns the HTTP router.
func (s *Server) GetRouter() http.Handler {
	return s.server.Handler
}

func (s *Server) setupServer(metricsHandler http.Handler) {
	router := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	router.Use(s.loggingMiddleware)
	router.Use(s.rateLimiter.RateLimitMiddleware)

	router.HandleFunc("/health", s.handlers.HealthHandler).Methods("GET")
	router.HandleFunc("/recent", s.handlers.RecentHandler).Methods("GET")
	router.HandleFunc("/simulate", s.handlers.Simulate).Methods("POST")
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}

	handler := c.Handler(router)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		log.Printf("%s %s %d %v %s", r.Method, r.RequestURI, wrapper.statusCode, time.Since(start), r.RemoteAddr)
	})
}

// rateLimiterCleanup periodically evicts expired rate limiter entries.
func (s *Server) rateLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.CleanupExpiredClients()
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
