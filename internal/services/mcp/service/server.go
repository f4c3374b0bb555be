// Package service assembles the MCP server that exposes council
// deliberation tools over a stdio transport.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	councilserver "github.com/louisbranch/council.space/internal/services/council/app"
	councildomain "github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/orchestrator"
	"github.com/louisbranch/council.space/internal/services/council/provider"
	"github.com/louisbranch/council.space/internal/services/council/storage"
	councilsqlite "github.com/louisbranch/council.space/internal/services/council/storage/sqlite"
	"github.com/louisbranch/council.space/internal/services/mcp/domain"
)

const (
	serverName = "llm-council"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Config defines the inputs for the MCP service boundary.
type Config struct {
	DBPath string

	CouncilModels []string
	ChairmanModel string
	ResearchModel string
	Preset        string

	HistoryStrategy  string
	MaxResponseBytes int
}

// Server hosts the MCP tool surface over a chosen transport.
type Server struct {
	mcpServer *mcp.Server
	store     storage.Store
}

// New creates a configured MCP server: provider registry from the
// environment, validated roster, SQLite store, and registered tools.
func New(config Config) (*Server, error) {
	registry, err := provider.NewRegistryFromEnv()
	if err != nil {
		return nil, err
	}

	roster, err := councilserver.ResolveRoster(councilserver.Config{
		CouncilModels: config.CouncilModels,
		ChairmanModel: config.ChairmanModel,
		ResearchModel: config.ResearchModel,
		Preset:        config.Preset,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}
	if err := roster.Validate(registry); err != nil {
		return nil, err
	}

	dbPath := strings.TrimSpace(config.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", "council.db")
	}
	store, err := councilsqlite.Open(dbPath, config.MaxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	historyStrategy := storage.HistoryStrategy(strings.TrimSpace(config.HistoryStrategy))
	if historyStrategy == "" {
		historyStrategy = storage.HistoryChairmanOnly
	}

	factory := domain.EngineFactory(func(r councildomain.Roster) domain.Deliberator {
		return orchestrator.New(registry, r)
	})
	return newServer(store, factory, roster, historyStrategy)
}

// newServer registers every tool module on a fresh MCP server. Tests call
// it directly with fakes in place of the live engine and store.
func newServer(store storage.Store, factory domain.EngineFactory, roster councildomain.Roster, history storage.HistoryStrategy) (*Server, error) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	engine := factory(roster)
	for _, module := range newRegistrationModules(store, engine, factory, roster, history) {
		if err := module.register(registrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}

	return &Server{mcpServer: mcpServer, store: store}, nil
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	return s.mcpServer.Run(ctx, transport)
}

// Close releases the conversation store held by the server.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Run creates and serves an MCP server on stdio until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := New(config)
	if err != nil {
		return fmt.Errorf("init MCP server: %w", err)
	}
	defer func() { _ = server.Close() }()

	return server.Serve(ctx)
}
