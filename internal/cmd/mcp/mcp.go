// Package mcp parses MCP command flags and starts the stdio adapter.
package mcp

import (
	"context"
	"flag"
	"strings"

	entrypoint "github.com/louisbranch/council.space/internal/platform/cmd"
	"github.com/louisbranch/council.space/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath string `env:"COUNCIL_SPACE_DB_PATH" envDefault:"data/council.db"`

	CouncilModels string `env:"COUNCIL_SPACE_COUNCIL_MODELS"`
	ChairmanModel string `env:"COUNCIL_SPACE_CHAIRMAN_MODEL"`
	ResearchModel string `env:"COUNCIL_SPACE_RESEARCH_MODEL"`
	Preset        string `env:"COUNCIL_SPACE_PRESET"`

	HistoryStrategy  string `env:"COUNCIL_SPACE_CONTEXT_STRATEGY" envDefault:"chairman_only"`
	MaxResponseBytes int    `env:"COUNCIL_SPACE_MAX_RESPONSE_BYTES"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the conversation database")
	fs.StringVar(&cfg.CouncilModels, "council-models", cfg.CouncilModels, "Comma-separated council model ids (provider:model)")
	fs.StringVar(&cfg.ChairmanModel, "chairman-model", cfg.ChairmanModel, "Chairman model id (provider:model)")
	fs.StringVar(&cfg.ResearchModel, "research-model", cfg.ResearchModel, "Research model id (provider:model)")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Preset roster when no explicit models are set")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitModels(value string) []string {
	var models []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		models = append(models, entry)
	}
	return models
}

// Run starts the MCP protocol adapter on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return service.Run(ctx, service.Config{
			DBPath:           cfg.DBPath,
			CouncilModels:    splitModels(cfg.CouncilModels),
			ChairmanModel:    cfg.ChairmanModel,
			ResearchModel:    cfg.ResearchModel,
			Preset:           cfg.Preset,
			HistoryStrategy:  cfg.HistoryStrategy,
			MaxResponseBytes: cfg.MaxResponseBytes,
		})
	})
}
