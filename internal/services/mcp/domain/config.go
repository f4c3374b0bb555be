package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/council.space/internal/services/council/catalog"
	councildomain "github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/storage"
)

// ConfigInput requests the active council configuration.
type ConfigInput struct{}

// ConfigResult is the model and context configuration in effect.
type ConfigResult struct {
	CouncilModels       []string `json:"council_models"`
	ChairmanModel       string   `json:"chairman_model"`
	ResearchModel       string   `json:"research_model,omitempty"`
	ContextStrategy     string   `json:"context_strategy"`
	MaxContextExchanges int      `json:"max_context_exchanges"`
}

// ConfigTool defines the MCP tool schema for reading the configuration.
func ConfigTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_current_config",
		Description: "Get the council's current model configuration and conversation context strategy",
	}
}

// ConfigHandler reports the active roster and history settings.
func ConfigHandler(roster councildomain.Roster, history storage.HistoryStrategy) mcp.ToolHandlerFor[ConfigInput, ConfigResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ConfigInput) (*mcp.CallToolResult, ConfigResult, error) {
		used := modelsUsed(roster)
		return nil, ConfigResult{
			CouncilModels:       used.Council,
			ChairmanModel:       used.Chairman,
			ResearchModel:       used.Research,
			ContextStrategy:     string(history),
			MaxContextExchanges: storage.DefaultMaxExchanges,
		}, nil
	}
}

// ModelListInput requests the model catalog.
type ModelListInput struct{}

// ModelEntry is one catalog model in wire form.
type ModelEntry struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	DisplayName   string `json:"display_name"`
	CostTier      string `json:"cost_tier"`
	SpeedTier     string `json:"speed_tier"`
	Description   string `json:"description"`
	ContextWindow int    `json:"context_window"`
}

// ModelListResult is the full model catalog.
type ModelListResult struct {
	Models []ModelEntry `json:"models"`
	Count  int          `json:"count"`
}

// ModelListTool defines the MCP tool schema for listing catalog models.
func ModelListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_available_models",
		Description: "List catalog models with cost tier, speed tier, and context window metadata",
	}
}

// ModelListHandler lists the model catalog.
func ModelListHandler() mcp.ToolHandlerFor[ModelListInput, ModelListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ModelListInput) (*mcp.CallToolResult, ModelListResult, error) {
		models := catalog.Models()
		entries := make([]ModelEntry, 0, len(models))
		for _, model := range models {
			entries = append(entries, ModelEntry{
				ID:            model.FullID(),
				Provider:      string(model.Provider),
				DisplayName:   model.DisplayName,
				CostTier:      model.CostTier,
				SpeedTier:     model.SpeedTier,
				Description:   model.Description,
				ContextWindow: model.ContextWindow,
			})
		}
		return nil, ModelListResult{Models: entries, Count: len(entries)}, nil
	}
}

// PresetListInput requests the preset catalog.
type PresetListInput struct{}

// PresetListResult is every preset roster configuration.
type PresetListResult struct {
	Presets []catalog.Preset `json:"presets"`
	Count   int              `json:"count"`
}

// PresetListTool defines the MCP tool schema for listing presets.
func PresetListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_presets",
		Description: "List preset council configurations (fast, balanced, comprehensive)",
	}
}

// PresetListHandler lists the preset catalog.
func PresetListHandler() mcp.ToolHandlerFor[PresetListInput, PresetListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ PresetListInput) (*mcp.CallToolResult, PresetListResult, error) {
		presets := catalog.Presets()
		return nil, PresetListResult{Presets: presets, Count: len(presets)}, nil
	}
}
