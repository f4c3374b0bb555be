// Package domain defines the MCP tool schemas and handlers that expose
// council deliberation to MCP clients.
package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/council.space/internal/services/council/catalog"
	councildomain "github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/orchestrator"
	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// Deliberator runs one council round. *orchestrator.Orchestrator satisfies
// it; tests substitute scripted fakes.
type Deliberator interface {
	Deliberate(ctx context.Context, history []provider.Message, prompt string, sink orchestrator.Sink) (councildomain.RoundResult, error)
}

// EngineFactory builds a deliberator for a roster, so tools that accept
// model overrides can run rounds outside the default configuration.
type EngineFactory func(roster councildomain.Roster) Deliberator

// QueryInput asks the default council a single standalone question.
type QueryInput struct {
	Prompt string `json:"prompt" jsonschema:"question or prompt to send to the council"`
}

// QueryResult carries every stage of a completed round.
type QueryResult struct {
	Stage1   []councildomain.Answer            `json:"stage1"`
	Stage2   []councildomain.RankingSubmission `json:"stage2"`
	Stage3   councildomain.Synthesis           `json:"stage3"`
	Metadata councildomain.RoundMetadata       `json:"metadata"`
}

// QueryTool defines the MCP tool schema for a standalone council query.
func QueryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "council_query",
		Description: "Submit a question to the council: members answer independently, rank each other's anonymized responses, and a chairman synthesizes the final answer",
	}
}

// QueryHandler runs one round on the default council.
func QueryHandler(engine Deliberator) mcp.ToolHandlerFor[QueryInput, QueryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryResult, error) {
		prompt := strings.TrimSpace(input.Prompt)
		if prompt == "" {
			return nil, QueryResult{}, fmt.Errorf("prompt cannot be empty")
		}

		result, err := engine.Deliberate(ctx, nil, prompt, nil)
		if err != nil {
			return nil, QueryResult{}, fmt.Errorf("council query failed: %w", err)
		}
		return nil, queryResult(result), nil
	}
}

// QueryWithModelsInput asks the council a question under a model override. A
// preset name takes precedence over individual model settings.
type QueryWithModelsInput struct {
	Prompt        string   `json:"prompt" jsonschema:"question or prompt to send to the council"`
	CouncilModels []string `json:"council_models,omitempty" jsonschema:"council member model ids in provider:model format"`
	ChairmanModel string   `json:"chairman_model,omitempty" jsonschema:"chairman model id in provider:model format"`
	ResearchModel string   `json:"research_model,omitempty" jsonschema:"optional research model id in provider:model format"`
	Preset        string   `json:"preset,omitempty" jsonschema:"preset name (fast, balanced, comprehensive); wins over individual models"`
}

// ModelsUsed reports the effective configuration a round ran with.
type ModelsUsed struct {
	Council  []string `json:"council"`
	Chairman string   `json:"chairman"`
	Research string   `json:"research,omitempty"`
}

// QueryWithModelsResult is a round outcome plus the models that produced it.
type QueryWithModelsResult struct {
	QueryResult
	ModelsUsed ModelsUsed `json:"models_used"`
}

// QueryWithModelsTool defines the MCP tool schema for an overridden query.
func QueryWithModelsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "council_query_with_models",
		Description: "Submit a question to a council assembled from explicit model ids or a preset (fast, balanced, comprehensive)",
	}
}

// QueryWithModelsHandler assembles a roster from the input and runs one
// round on it, falling back to the default roster when nothing is overridden.
func QueryWithModelsHandler(factory EngineFactory, defaults councildomain.Roster) mcp.ToolHandlerFor[QueryWithModelsInput, QueryWithModelsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QueryWithModelsInput) (*mcp.CallToolResult, QueryWithModelsResult, error) {
		prompt := strings.TrimSpace(input.Prompt)
		if prompt == "" {
			return nil, QueryWithModelsResult{}, fmt.Errorf("prompt cannot be empty")
		}

		roster, err := resolveOverride(input, defaults)
		if err != nil {
			return nil, QueryWithModelsResult{}, err
		}

		result, err := factory(roster).Deliberate(ctx, nil, prompt, nil)
		if err != nil {
			return nil, QueryWithModelsResult{}, fmt.Errorf("council query failed: %w", err)
		}

		return nil, QueryWithModelsResult{
			QueryResult: queryResult(result),
			ModelsUsed:  modelsUsed(roster),
		}, nil
	}
}

func queryResult(result councildomain.RoundResult) QueryResult {
	return QueryResult{
		Stage1:   result.Stage1,
		Stage2:   result.Stage2,
		Stage3:   result.Stage3,
		Metadata: result.Metadata,
	}
}

func modelsUsed(roster councildomain.Roster) ModelsUsed {
	used := ModelsUsed{Chairman: roster.Chairman.ModelID}
	for _, member := range roster.Council {
		used.Council = append(used.Council, member.ModelID)
	}
	if roster.Research != nil {
		used.Research = roster.Research.ModelID
	}
	return used
}

// resolveOverride picks the roster for one overridden round: preset first,
// then explicit models, then the defaults.
func resolveOverride(input QueryWithModelsInput, defaults councildomain.Roster) (councildomain.Roster, error) {
	if name := strings.TrimSpace(input.Preset); name != "" {
		preset, ok := catalog.GetPreset(name)
		if !ok {
			return councildomain.Roster{}, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(catalog.PresetNames(), ", "))
		}
		return councildomain.NewRoster(preset.CouncilModels, preset.ChairmanModel, preset.ResearchModel)
	}

	if len(input.CouncilModels) == 0 && input.ChairmanModel == "" && input.ResearchModel == "" {
		return defaults, nil
	}

	councilModels := input.CouncilModels
	if len(councilModels) == 0 {
		for _, member := range defaults.Council {
			councilModels = append(councilModels, member.ModelID)
		}
	}
	chairman := input.ChairmanModel
	if chairman == "" {
		chairman = defaults.Chairman.ModelID
	}
	research := input.ResearchModel
	if research == "" && defaults.Research != nil {
		research = defaults.Research.ModelID
	}
	return councildomain.NewRoster(councilModels, chairman, research)
}
