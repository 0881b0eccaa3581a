// Package health exposes the router's connection state through the standard
// gRPC health checking protocol (grpc.health.v1.Health).
package health

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StatusSource reports connection edges. router.Router satisfies it.
type StatusSource interface {
	IsConnected() bool
	OnConnected(fn func())
	OnDisconnected(fn func())
}

// Server serves grpc.health.v1.Health. The configured service is SERVING
// while the tracked router is connected and NOT_SERVING otherwise; the
// overall ("") status is SERVING while the server runs.
type Server struct {
	mu     sync.RWMutex
	config *Config
	log    zerolog.Logger

	grpcServer *grpc.Server
	health     *grpchealth.Server
	listener   net.Listener

	started bool
	closed  bool
	done    chan struct{}
}

// NewServer creates a health server. Call Start to begin listening.
func NewServer(config *Config, logger zerolog.Logger) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	hs := grpchealth.NewServer()
	hs.SetServingStatus(config.Service, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		config:     config,
		log:        logger.With().Str("component", "health").Logger(),
		grpcServer: gs,
		health:     hs,
		done:       make(chan struct{}),
	}, nil
}

// Track follows source's connection state.
func (s *Server) Track(source StatusSource) {
	source.OnConnected(func() { s.SetServing(true) })
	source.OnDisconnected(func() { s.SetServing(false) })
	s.SetServing(source.IsConnected())
}

// SetServing sets the configured service's status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.config.Service, status)
	s.log.Debug().Str("service", s.config.Service).Str("status", status.String()).Msg("Health status changed")
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("cannot start closed health server")
	}
	if s.started {
		return nil // Already started, idempotent
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = listener
	s.started = true

	go func() {
		defer close(s.done)
		if err := s.grpcServer.Serve(listener); err != nil {
			s.log.Error().Err(err).Msg("Health server stopped")
		}
	}()

	s.log.Info().Str("address", listener.Addr().String()).Msg("Health server listening")
	return nil
}

// GetListeningAddress returns the bound address, or "" before Start.
func (s *Server) GetListeningAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil // Already closed, idempotent
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if started {
		<-s.done
	}
	return nil
}
