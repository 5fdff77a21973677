// Package api provides the HTTP inspection API of a node's message store
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/message"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
	"github.com/ZentaChain/zentalk-msgcore/pkg/storage"
)

// Store is the part of the message store the API works on
type Store interface {
	GetMessage(id string) (*message.Message, error)
	ListMessages(filter storage.ListFilter) ([]*message.Message, error)
	UpdateStatus(id string, status protocol.Status) (previous, current protocol.Status, err error)
	RecordRelay(id, nodeID string) (*message.Message, error)
	Stats() (map[protocol.Status]int, error)
}

// Server represents the HTTP API server of a node
type Server struct {
	store      Store
	router     *gin.Engine
	logger     *zap.Logger
	nodeID     string
	config     *Config
	httpServer *http.Server
	startedAt  time.Time
}

// Config holds server configuration
type Config struct {
	Port         int
	NodeID       string
	PublicKey    []byte // node public key PEM served to peers
	EnableCORS   bool
	RateLimit    int // Requests per minute, 0 disables limiting
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		RateLimit:    100,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP API server over store
func NewServer(store Store, config *Config, logger *zap.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("api: store is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		store:     store,
		router:    gin.New(),
		logger:    logger,
		nodeID:    config.NodeID,
		config:    config,
		startedAt: time.Now(),
	}

	server.setupMiddleware(config)
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(config *Config) {
	// Error recovery
	s.router.Use(RecoveryMiddleware(s.logger))

	// CORS middleware
	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	// Rate limiting
	if config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(config.RateLimit)))
	}

	// Request logging
	s.router.Use(LoggingMiddleware(s.logger))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/node/key", s.handleNodeKey)

		messages := v1.Group("/messages")
		{
			messages.GET("", s.handleListMessages)
			messages.GET("/:id", s.handleGetMessage)
			messages.PUT("/:id/status", s.handleUpdateStatus)
			messages.POST("/:id/relay", s.handleRecordRelay)
		}
	}

	// Health check endpoint (outside versioning)
	s.router.GET("/health", s.handleHealth)
}

// Handler exposes the router, mainly for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API server starting", zap.Int("port", s.config.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
