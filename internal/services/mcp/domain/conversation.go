package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/council.space/internal/services/council/storage"
)

// Conversation listing bounds mirror the HTTP API defaults.
const (
	defaultConversationLimit = 20
	maxConversationLimit     = 100
)

// ConversationCreateInput creates a fresh conversation.
type ConversationCreateInput struct{}

// ConversationCreateResult identifies the new conversation.
type ConversationCreateResult struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	CreatedAt      string `json:"created_at"`
}

// ConversationCreateTool defines the MCP tool schema for creating a
// conversation.
func ConversationCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "create_council_conversation",
		Description: "Create a new council conversation that preserves context across follow-up queries",
	}
}

// ConversationCreateHandler creates a conversation in the store.
func ConversationCreateHandler(store storage.Store) mcp.ToolHandlerFor[ConversationCreateInput, ConversationCreateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ConversationCreateInput) (*mcp.CallToolResult, ConversationCreateResult, error) {
		conversation := storage.Conversation{
			ID:        storage.NewConversationID(),
			Title:     storage.DefaultTitle,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.CreateConversation(ctx, conversation); err != nil {
			return nil, ConversationCreateResult{}, fmt.Errorf("create conversation: %w", err)
		}
		return nil, ConversationCreateResult{
			ConversationID: conversation.ID,
			Title:          conversation.Title,
			CreatedAt:      conversation.CreatedAt.Format(time.RFC3339),
		}, nil
	}
}

// ConversationContinueInput adds a follow-up query to a conversation.
type ConversationContinueInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"UUID of the conversation to continue"`
	Prompt         string `json:"prompt" jsonschema:"follow-up question or prompt"`
}

// ConversationContinueResult is a round outcome inside a conversation.
type ConversationContinueResult struct {
	ConversationID string `json:"conversation_id"`
	QueryResult
	MessageCount int `json:"message_count"`
}

// ConversationContinueTool defines the MCP tool schema for continuing a
// conversation.
func ConversationContinueTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "continue_conversation",
		Description: "Continue an existing council conversation; prior exchanges are provided to the council as context",
	}
}

// ConversationContinueHandler loads history, runs a round, and persists both
// turns.
func ConversationContinueHandler(store storage.Store, engine Deliberator, history storage.HistoryStrategy) mcp.ToolHandlerFor[ConversationContinueInput, ConversationContinueResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConversationContinueInput) (*mcp.CallToolResult, ConversationContinueResult, error) {
		prompt := strings.TrimSpace(input.Prompt)
		if prompt == "" {
			return nil, ConversationContinueResult{}, fmt.Errorf("prompt cannot be empty")
		}

		conversation, err := store.GetConversation(ctx, strings.TrimSpace(input.ConversationID))
		if err != nil {
			return nil, ConversationContinueResult{}, conversationError(input.ConversationID, err)
		}

		if err := store.AppendUserMessage(ctx, conversation.ID, prompt); err != nil {
			return nil, ConversationContinueResult{}, fmt.Errorf("record user message: %w", err)
		}

		result, err := engine.Deliberate(ctx, storage.BuildHistory(conversation, history, storage.DefaultMaxExchanges), prompt, nil)
		if err != nil {
			return nil, ConversationContinueResult{}, fmt.Errorf("council query failed: %w", err)
		}

		if err := store.AppendRoundResult(ctx, conversation.ID, result); err != nil {
			return nil, ConversationContinueResult{}, fmt.Errorf("record council response: %w", err)
		}

		return nil, ConversationContinueResult{
			ConversationID: conversation.ID,
			QueryResult:    queryResult(result),
			MessageCount:   len(conversation.Messages) + 2,
		}, nil
	}
}

// ConversationGetInput fetches one conversation.
type ConversationGetInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"UUID of the conversation to retrieve"`
}

// ConversationGetResult is a full conversation with its messages.
type ConversationGetResult struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	CreatedAt    string            `json:"created_at"`
	Messages     []storage.Message `json:"messages"`
	MessageCount int               `json:"message_count"`
}

// ConversationGetTool defines the MCP tool schema for fetching a
// conversation.
func ConversationGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_council_conversation",
		Description: "Retrieve a council conversation with all of its messages",
	}
}

// ConversationGetHandler fetches a conversation by id.
func ConversationGetHandler(store storage.Store) mcp.ToolHandlerFor[ConversationGetInput, ConversationGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConversationGetInput) (*mcp.CallToolResult, ConversationGetResult, error) {
		conversation, err := store.GetConversation(ctx, strings.TrimSpace(input.ConversationID))
		if err != nil {
			return nil, ConversationGetResult{}, conversationError(input.ConversationID, err)
		}
		return nil, ConversationGetResult{
			ID:           conversation.ID,
			Title:        conversation.Title,
			CreatedAt:    conversation.CreatedAt.Format(time.RFC3339),
			Messages:     conversation.Messages,
			MessageCount: len(conversation.Messages),
		}, nil
	}
}

// ConversationListInput pages through conversation summaries.
type ConversationListInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum conversations to return (default 20, max 100)"`
	Offset int `json:"offset,omitempty" jsonschema:"conversations to skip for pagination"`
}

// ConversationListResult is one page of conversation summaries.
type ConversationListResult struct {
	Conversations []storage.Summary `json:"conversations"`
	TotalCount    int               `json:"total_count"`
	Limit         int               `json:"limit"`
	Offset        int               `json:"offset"`
	HasMore       bool              `json:"has_more"`
}

// ConversationListTool defines the MCP tool schema for listing
// conversations.
func ConversationListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_council_conversations",
		Description: "List council conversations with pagination; returns metadata without message contents",
	}
}

// ConversationListHandler lists conversation summaries one page at a time.
func ConversationListHandler(store storage.Store) mcp.ToolHandlerFor[ConversationListInput, ConversationListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConversationListInput) (*mcp.CallToolResult, ConversationListResult, error) {
		limit := input.Limit
		if limit < 1 {
			limit = defaultConversationLimit
		} else if limit > maxConversationLimit {
			limit = maxConversationLimit
		}
		offset := input.Offset
		if offset < 0 {
			offset = 0
		}

		summaries, err := store.ListConversations(ctx)
		if err != nil {
			return nil, ConversationListResult{}, fmt.Errorf("list conversations: %w", err)
		}

		total := len(summaries)
		page := []storage.Summary{}
		if offset < total {
			end := offset + limit
			if end > total {
				end = total
			}
			page = summaries[offset:end]
		}

		return nil, ConversationListResult{
			Conversations: page,
			TotalCount:    total,
			Limit:         limit,
			Offset:        offset,
			HasMore:       offset+limit < total,
		}, nil
	}
}

func conversationError(id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("conversation not found: %s", strings.TrimSpace(id))
	case errors.Is(err, storage.ErrInvalidConversationID):
		return fmt.Errorf("invalid conversation id: %s", strings.TrimSpace(id))
	default:
		return fmt.Errorf("load conversation: %w", err)
	}
}
