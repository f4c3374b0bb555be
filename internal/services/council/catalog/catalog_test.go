package catalog

import (
	"testing"

	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/provider"
)

func TestLookup(t *testing.T) {
	model, ok := Lookup("openai:gpt-4o-mini")
	if !ok {
		t.Fatal("Lookup() = false for a catalog model")
	}
	if model.DisplayName != "GPT-4o Mini" || model.CostTier != CostLow {
		t.Fatalf("Lookup() = %+v, want the GPT-4o Mini entry", model)
	}

	if _, ok := Lookup("openai:made-up"); ok {
		t.Fatal("Lookup() = true for an unknown model")
	}
}

func TestDescribeSynthesizesUnknownModels(t *testing.T) {
	model := Describe("anthropic:claude-99")
	if model.Provider != provider.Anthropic || model.ID != "claude-99" {
		t.Fatalf("Describe() = %+v, want a synthesized anthropic entry", model)
	}
	if model.CostTier != CostMedium || model.SpeedTier != SpeedMedium {
		t.Fatalf("Describe() tiers = %s/%s, want medium defaults", model.CostTier, model.SpeedTier)
	}
}

func TestModelsByProvider(t *testing.T) {
	for _, model := range ModelsByProvider(provider.Gemini) {
		if model.Provider != provider.Gemini {
			t.Fatalf("ModelsByProvider(gemini) returned %+v", model)
		}
	}
	if len(ModelsByProvider(provider.Gemini)) == 0 {
		t.Fatal("ModelsByProvider(gemini) is empty")
	}
}

func TestCatalogModelIDsParse(t *testing.T) {
	for _, model := range Models() {
		if _, _, err := provider.ParseModelID(model.FullID()); err != nil {
			t.Errorf("catalog entry %q does not parse: %v", model.FullID(), err)
		}
	}
}

func TestGetPreset(t *testing.T) {
	preset, ok := GetPreset("Balanced")
	if !ok {
		t.Fatal("GetPreset() = false for balanced")
	}
	if preset.ResearchModel != "perplexity:sonar-pro" {
		t.Fatalf("balanced research model = %q", preset.ResearchModel)
	}

	if _, ok := GetPreset("turbo"); ok {
		t.Fatal("GetPreset() = true for an unknown preset")
	}
}

func TestPresetsBuildValidRosters(t *testing.T) {
	all := Presets()
	if len(all) != 3 {
		t.Fatalf("Presets() = %d entries, want 3", len(all))
	}
	for _, preset := range all {
		t.Run(preset.Name, func(t *testing.T) {
			roster, err := domain.NewRoster(preset.CouncilModels, preset.ChairmanModel, preset.ResearchModel)
			if err != nil {
				t.Fatalf("NewRoster() error = %v", err)
			}
			if len(roster.Council) < domain.MinCouncilSize {
				t.Fatalf("preset council size = %d, below minimum", len(roster.Council))
			}
		})
	}
}
