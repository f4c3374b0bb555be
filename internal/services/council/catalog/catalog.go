// Package catalog holds model metadata and the built-in roster presets.
package catalog

import (
	"sort"
	"strings"

	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// Cost and speed tiers for catalog entries.
const (
	CostLow    = "low"
	CostMedium = "medium"
	CostHigh   = "high"

	SpeedFast   = "fast"
	SpeedMedium = "medium"
	SpeedSlow   = "slow"
)

// Model describes one known model.
type Model struct {
	ID            string      `json:"id"`
	Provider      provider.ID `json:"provider"`
	DisplayName   string      `json:"display_name"`
	CostTier      string      `json:"cost_tier"`
	SpeedTier     string      `json:"speed_tier"`
	Description   string      `json:"description,omitempty"`
	ContextWindow int         `json:"context_window,omitempty"`
}

// FullID returns the provider:model identifier.
func (m Model) FullID() string {
	return string(m.Provider) + ":" + m.ID
}

// Preset is a named roster configuration.
type Preset struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Description   string   `json:"description"`
	CouncilModels []string `json:"council_models"`
	ChairmanModel string   `json:"chairman_model"`
	ResearchModel string   `json:"research_model,omitempty"`
}

var models = []Model{
	{ID: "gpt-4o", Provider: provider.OpenAI, DisplayName: "GPT-4o", CostTier: CostHigh, SpeedTier: SpeedMedium, Description: "Most capable GPT-4 model with vision", ContextWindow: 128000},
	{ID: "gpt-4o-mini", Provider: provider.OpenAI, DisplayName: "GPT-4o Mini", CostTier: CostLow, SpeedTier: SpeedFast, Description: "Smaller, faster GPT-4o variant", ContextWindow: 128000},
	{ID: "gpt-4.1", Provider: provider.OpenAI, DisplayName: "GPT-4.1", CostTier: CostHigh, SpeedTier: SpeedMedium, Description: "Latest GPT-4 model", ContextWindow: 128000},
	{ID: "gpt-4.1-mini", Provider: provider.OpenAI, DisplayName: "GPT-4.1 Mini", CostTier: CostLow, SpeedTier: SpeedFast, Description: "Smaller, faster GPT-4.1 variant", ContextWindow: 128000},
	{ID: "o3-mini", Provider: provider.OpenAI, DisplayName: "O3 Mini", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Reasoning-focused model", ContextWindow: 200000},
	{ID: "claude-3-5-sonnet-latest", Provider: provider.Anthropic, DisplayName: "Claude 3.5 Sonnet", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Balanced intelligence and speed", ContextWindow: 200000},
	{ID: "claude-3-opus-latest", Provider: provider.Anthropic, DisplayName: "Claude 3 Opus", CostTier: CostHigh, SpeedTier: SpeedSlow, Description: "Most capable Claude 3 model", ContextWindow: 200000},
	{ID: "claude-3-haiku-20240307", Provider: provider.Anthropic, DisplayName: "Claude 3 Haiku", CostTier: CostLow, SpeedTier: SpeedFast, Description: "Fastest Claude 3 model", ContextWindow: 200000},
	{ID: "claude-sonnet-4-5", Provider: provider.Anthropic, DisplayName: "Claude Sonnet 4.5", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Latest Sonnet generation", ContextWindow: 200000},
	{ID: "gemini-2.0-pro", Provider: provider.Gemini, DisplayName: "Gemini 2.0 Pro", CostTier: CostHigh, SpeedTier: SpeedMedium, Description: "Most capable Gemini model", ContextWindow: 1000000},
	{ID: "gemini-2.0-flash", Provider: provider.Gemini, DisplayName: "Gemini 2.0 Flash", CostTier: CostLow, SpeedTier: SpeedFast, Description: "Fast multimodal model", ContextWindow: 1000000},
	{ID: "gemini-1.5-pro", Provider: provider.Gemini, DisplayName: "Gemini 1.5 Pro", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Long-context workhorse", ContextWindow: 2000000},
	{ID: "sonar-pro", Provider: provider.Perplexity, DisplayName: "Sonar Pro", CostTier: CostMedium, SpeedTier: SpeedFast, Description: "Web-grounded answers with citations", ContextWindow: 200000},
	{ID: "sonar-reasoning", Provider: provider.Perplexity, DisplayName: "Sonar Reasoning", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Web-grounded multi-step reasoning", ContextWindow: 128000},
	{ID: "anthropic/claude-3.5-sonnet", Provider: provider.OpenRouter, DisplayName: "Claude 3.5 Sonnet (OR)", CostTier: CostMedium, SpeedTier: SpeedMedium, Description: "Claude 3.5 Sonnet via OpenRouter", ContextWindow: 200000},
	{ID: "openai/gpt-4o", Provider: provider.OpenRouter, DisplayName: "GPT-4o (OR)", CostTier: CostHigh, SpeedTier: SpeedMedium, Description: "GPT-4o via OpenRouter", ContextWindow: 128000},
	{ID: "google/gemini-2.0-flash-exp:free", Provider: provider.OpenRouter, DisplayName: "Gemini 2.0 Flash (Free)", CostTier: CostLow, SpeedTier: SpeedFast, Description: "Free Gemini 2.0 Flash tier", ContextWindow: 1000000},
}

var presets = map[string]Preset{
	"fast": {
		Name:        "fast",
		DisplayName: "Fast",
		Description: "Optimized for speed with cost-efficient models",
		CouncilModels: []string{
			"openai:gpt-4o-mini",
			"anthropic:claude-3-haiku-20240307",
			"gemini:gemini-2.0-flash",
		},
		ChairmanModel: "anthropic:claude-3-5-sonnet-latest",
	},
	"balanced": {
		Name:        "balanced",
		DisplayName: "Balanced",
		Description: "Good balance of quality, speed, and cost",
		CouncilModels: []string{
			"openai:gpt-4o",
			"anthropic:claude-3-5-sonnet-latest",
			"gemini:gemini-2.0-flash",
		},
		ChairmanModel: "anthropic:claude-3-5-sonnet-latest",
		ResearchModel: "perplexity:sonar-pro",
	},
	"comprehensive": {
		Name:        "comprehensive",
		DisplayName: "Comprehensive",
		Description: "Maximum quality with top-tier models",
		CouncilModels: []string{
			"openai:gpt-4.1",
			"anthropic:claude-3-opus-latest",
			"gemini:gemini-2.0-pro",
		},
		ChairmanModel: "anthropic:claude-3-opus-latest",
		ResearchModel: "perplexity:sonar-reasoning",
	},
}

// Models returns every catalog entry ordered by provider then model id.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ModelsByProvider returns catalog entries for one provider family.
func ModelsByProvider(id provider.ID) []Model {
	var out []Model
	for _, model := range models {
		if model.Provider == id {
			out = append(out, model)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a catalog entry by its provider:model identifier.
func Lookup(modelID string) (Model, bool) {
	for _, model := range models {
		if model.FullID() == modelID {
			return model, true
		}
	}
	return Model{}, false
}

// Describe returns catalog metadata for a model, synthesizing a minimal entry
// for identifiers configured outside the catalog.
func Describe(modelID string) Model {
	if model, ok := Lookup(modelID); ok {
		return model
	}
	providerID, name, err := provider.ParseModelID(modelID)
	if err != nil {
		return Model{ID: modelID, DisplayName: modelID, CostTier: CostMedium, SpeedTier: SpeedMedium}
	}
	return Model{
		ID:          name,
		Provider:    providerID,
		DisplayName: name,
		CostTier:    CostMedium,
		SpeedTier:   SpeedMedium,
	}
}

// GetPreset finds a preset by name, case-insensitively.
func GetPreset(name string) (Preset, bool) {
	preset, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return preset, ok
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns every preset in a stable order.
func Presets() []Preset {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Preset, 0, len(names))
	for _, name := range names {
		out = append(out, presets[name])
	}
	return out
}
