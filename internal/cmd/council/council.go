// Package council parses council command flags and starts the API service.
package council

import (
	"context"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/council.space/internal/platform/cmd"
	server "github.com/louisbranch/council.space/internal/services/council/app"
)

// Config holds council command configuration.
type Config struct {
	HTTPAddr string `env:"COUNCIL_SPACE_HTTP_ADDR" envDefault:":8000"`
	GRPCAddr string `env:"COUNCIL_SPACE_GRPC_ADDR"`
	DBPath   string `env:"COUNCIL_SPACE_DB_PATH" envDefault:"data/council.db"`

	CouncilModels string `env:"COUNCIL_SPACE_COUNCIL_MODELS"`
	ChairmanModel string `env:"COUNCIL_SPACE_CHAIRMAN_MODEL"`
	ResearchModel string `env:"COUNCIL_SPACE_RESEARCH_MODEL"`
	Preset        string `env:"COUNCIL_SPACE_PRESET"`

	SharedToken      string        `env:"COUNCIL_SPACE_SHARED_TOKEN"`
	RateLimitEnabled bool          `env:"COUNCIL_SPACE_RATE_LIMIT_ENABLED"`
	RateLimitWindow  time.Duration `env:"COUNCIL_SPACE_RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMax     int           `env:"COUNCIL_SPACE_RATE_LIMIT_MAX" envDefault:"60"`

	WebhookURL    string `env:"COUNCIL_SPACE_WEBHOOK_URL"`
	WebhookSecret string `env:"COUNCIL_SPACE_WEBHOOK_SECRET"`

	HistoryStrategy  string `env:"COUNCIL_SPACE_CONTEXT_STRATEGY" envDefault:"chairman_only"`
	MaxResponseBytes int    `env:"COUNCIL_SPACE_MAX_RESPONSE_BYTES"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The council HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The council gRPC health listen address (empty disables)")
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

// splitModels turns a comma-separated model list into its entries.
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

// Run starts the council API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCouncil, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:         cfg.HTTPAddr,
			GRPCAddr:         cfg.GRPCAddr,
			DBPath:           cfg.DBPath,
			CouncilModels:    splitModels(cfg.CouncilModels),
			ChairmanModel:    cfg.ChairmanModel,
			ResearchModel:    cfg.ResearchModel,
			Preset:           cfg.Preset,
			SharedToken:      cfg.SharedToken,
			RateLimitEnabled: cfg.RateLimitEnabled,
			RateLimitWindow:  cfg.RateLimitWindow,
			RateLimitMax:     cfg.RateLimitMax,
			WebhookURL:       cfg.WebhookURL,
			WebhookSecret:    cfg.WebhookSecret,
			HistoryStrategy:  cfg.HistoryStrategy,
			MaxResponseBytes: cfg.MaxResponseBytes,
		})
	})
}
