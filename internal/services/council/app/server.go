// Package server wires the council HTTP API, its SQLite storage, and the
// gRPC health surface into one process lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/council.space/internal/platform/timeouts"
	"github.com/louisbranch/council.space/internal/services/council/catalog"
	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/orchestrator"
	"github.com/louisbranch/council.space/internal/services/council/provider"
	"github.com/louisbranch/council.space/internal/services/council/storage"
	councilsqlite "github.com/louisbranch/council.space/internal/services/council/storage/sqlite"
)

// Config defines the inputs for the council service boundary.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	DBPath   string

	CouncilModels []string
	ChairmanModel string
	ResearchModel string
	Preset        string

	SharedToken      string
	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	RateLimitMax     int

	WebhookURL    string
	WebhookSecret string

	HistoryStrategy  string
	MaxResponseBytes int

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultPreset seeds the roster when no models are configured.
const DefaultPreset = "balanced"

// Server hosts the council HTTP process and its gRPC health listener.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
	store           storage.Store
	notifier        *Notifier
}

// ResolveRoster builds the effective roster from explicit models, a preset
// name, or the default preset, in that order of preference.
func ResolveRoster(config Config) (domain.Roster, error) {
	councilModels := config.CouncilModels
	chairman := config.ChairmanModel
	research := config.ResearchModel

	if len(councilModels) == 0 {
		name := config.Preset
		if strings.TrimSpace(name) == "" {
			name = DefaultPreset
		}
		preset, ok := catalog.GetPreset(name)
		if !ok {
			return domain.Roster{}, fmt.Errorf("unknown preset %q", name)
		}
		councilModels = preset.CouncilModels
		if chairman == "" {
			chairman = preset.ChairmanModel
		}
		if research == "" {
			research = preset.ResearchModel
		}
	}

	return domain.NewRoster(councilModels, chairman, research)
}

// New creates a configured council server: provider registry from the
// environment, validated roster, SQLite store, and HTTP routes.
func New(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	registry, err := provider.NewRegistryFromEnv()
	if err != nil {
		return nil, err
	}

	roster, err := ResolveRoster(config)
	if err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}
	if err := roster.Validate(registry); err != nil {
		return nil, err
	}
	for _, warning := range roster.Warnings() {
		log.Printf("roster: %s", warning)
	}

	dbPath := strings.TrimSpace(config.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", "council.db")
	}
	store, err := councilsqlite.Open(dbPath, config.MaxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	notifier := NewNotifier(config.WebhookURL, config.WebhookSecret)

	historyStrategy := storage.HistoryStrategy(strings.TrimSpace(config.HistoryStrategy))
	if historyStrategy == "" {
		historyStrategy = storage.HistoryChairmanOnly
	}

	h := &handlers{
		store:    store,
		engine:   orchestrator.New(registry, roster),
		roster:   roster,
		creds:    registry,
		history:  historyStrategy,
		notifier: notifier,
	}

	handler := newHandler(h)
	handler = authMiddleware(config.SharedToken, handler)
	if config.RateLimitEnabled {
		handler = newRateLimiter(config.RateLimitWindow, config.RateLimitMax).middleware(handler)
	}

	server := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		store:    store,
		notifier: notifier,
	}

	if grpcAddr := strings.TrimSpace(config.GRPCAddr); grpcAddr != "" {
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		server.grpcListener = listener
		server.grpcServer = grpcServer
		server.health = healthServer
	}

	return server, nil
}

// Run creates and serves a council server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := New(config)
	if err != nil {
		return fmt.Errorf("init council server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve council: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server, and the gRPC health listener when
// configured, until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("council server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("council server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	grpcErr := make(chan error, 1)
	if s.grpcServer != nil {
		log.Printf("council health listening at %v", s.grpcListener.Addr())
		go func() {
			grpcErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-grpcErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close conversation store: %v", err)
		}
	}
}
