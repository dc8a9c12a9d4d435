// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/record-review/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string // empty disables the metrics route
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MetricsPath:  "/metrics",
	}
}

// Server is the HTTP server adapter
type Server struct {
	config         ServerConfig
	httpServer     *http.Server
	router         *gin.Engine
	recordService  service.RecordService
	reportService  service.ReportService
	exporter       Exporter
	metricsHandler http.Handler
	health         HealthChecker
	logger         Logger
}

// Option configures optional server collaborators
type Option func(*Server)

// WithHealthCheck makes /health report the checker's result
func WithHealthCheck(checker HealthChecker) Option {
	return func(s *Server) {
		s.health = checker
	}
}

// NewServer creates a new HTTP server with the given services.
// metricsHandler may be nil when metrics are disabled.
func NewServer(
	config ServerConfig,
	recordService service.RecordService,
	reportService service.ReportService,
	exporter Exporter,
	metricsHandler http.Handler,
	logger Logger,
	opts ...Option,
) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	router := gin.New()

	server := &Server{
		config:         config,
		router:         router,
		recordService:  recordService,
		reportService:  reportService,
		exporter:       exporter,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.recordService, s.reportService, s.exporter, s.logger)
	handlers.health = s.health

	s.router.GET("/health", handlers.HealthCheck)

	if s.metricsHandler != nil && s.config.MetricsPath != "" {
		s.router.GET(s.config.MetricsPath, gin.WrapH(s.metricsHandler))
	}

	api := s.router.Group("/api", identityMiddleware())
	{
		// Records
		api.POST("/records", handlers.CreateRecord)
		api.GET("/records", handlers.ListRecords)
		api.GET("/records/:id", handlers.GetRecord)
		api.PUT("/records/:id/approvers/:role", handlers.AssignApprover)
		api.POST("/records/:id/transitions", handlers.Transition)
		api.GET("/records/:id/permitted", handlers.PermittedStatuses)

		// Dashboards
		api.GET("/rollups", handlers.Rollup)
		api.GET("/rollups/export", handlers.ExportRollup)
		api.GET("/budgets", handlers.BudgetReport)
		api.GET("/due-soon", handlers.DueSoon)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
