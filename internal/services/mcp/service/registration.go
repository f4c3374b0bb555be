package service

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	councildomain "github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/storage"
	"github.com/louisbranch/council.space/internal/services/mcp/domain"
)

type registrationTarget interface {
	AddTool(*mcp.Tool, any) error
}

type registrationModule struct {
	name     string
	register func(registrationTarget) error
}

const (
	councilToolsModuleName      = "council-tools"
	conversationToolsModuleName = "conversation-tools"
	catalogToolsModuleName      = "catalog-tools"
)

type registrationAdapter struct {
	server *mcp.Server
}

func (r registrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addTool(r.server, tool, handler)
}

type toolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newToolRegistrar[I any, O any]() toolRegistrar {
	return toolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var toolRegistrars = []toolRegistrar{
	newToolRegistrar[domain.QueryInput, domain.QueryResult](),
	newToolRegistrar[domain.QueryWithModelsInput, domain.QueryWithModelsResult](),
	newToolRegistrar[domain.ConversationCreateInput, domain.ConversationCreateResult](),
	newToolRegistrar[domain.ConversationContinueInput, domain.ConversationContinueResult](),
	newToolRegistrar[domain.ConversationGetInput, domain.ConversationGetResult](),
	newToolRegistrar[domain.ConversationListInput, domain.ConversationListResult](),
	newToolRegistrar[domain.ConfigInput, domain.ConfigResult](),
	newToolRegistrar[domain.ModelListInput, domain.ModelListResult](),
	newToolRegistrar[domain.PresetListInput, domain.PresetListResult](),
}

func addTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range toolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

func newRegistrationModules(
	store storage.Store,
	engine domain.Deliberator,
	factory domain.EngineFactory,
	roster councildomain.Roster,
	history storage.HistoryStrategy,
) []registrationModule {
	return []registrationModule{
		{
			name: councilToolsModuleName,
			register: func(registrar registrationTarget) error {
				return registerCouncilTools(registrar, engine, factory, roster)
			},
		},
		{
			name: conversationToolsModuleName,
			register: func(registrar registrationTarget) error {
				return registerConversationTools(registrar, store, engine, history)
			},
		},
		{
			name: catalogToolsModuleName,
			register: func(registrar registrationTarget) error {
				return registerCatalogTools(registrar, roster, history)
			},
		},
	}
}

func registerCouncilTools(registrar registrationTarget, engine domain.Deliberator, factory domain.EngineFactory, roster councildomain.Roster) error {
	if err := registrar.AddTool(domain.QueryTool(), domain.QueryHandler(engine)); err != nil {
		return err
	}
	return registrar.AddTool(domain.QueryWithModelsTool(), domain.QueryWithModelsHandler(factory, roster))
}

func registerConversationTools(registrar registrationTarget, store storage.Store, engine domain.Deliberator, history storage.HistoryStrategy) error {
	registrations := []struct {
		tool    *mcp.Tool
		handler any
	}{
		{tool: domain.ConversationCreateTool(), handler: domain.ConversationCreateHandler(store)},
		{tool: domain.ConversationContinueTool(), handler: domain.ConversationContinueHandler(store, engine, history)},
		{tool: domain.ConversationGetTool(), handler: domain.ConversationGetHandler(store)},
		{tool: domain.ConversationListTool(), handler: domain.ConversationListHandler(store)},
	}
	for _, registration := range registrations {
		if err := registrar.AddTool(registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerCatalogTools(registrar registrationTarget, roster councildomain.Roster, history storage.HistoryStrategy) error {
	if err := registrar.AddTool(domain.ConfigTool(), domain.ConfigHandler(roster, history)); err != nil {
		return err
	}
	if err := registrar.AddTool(domain.ModelListTool(), domain.ModelListHandler()); err != nil {
		return err
	}
	return registrar.AddTool(domain.PresetListTool(), domain.PresetListHandler())
}
