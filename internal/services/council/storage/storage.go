// Package storage defines persistence contracts for conversation state.
//
// Only natural-language stage payloads are durable. Round-scoped artifacts
// such as label mappings and aggregate rankings never reach a Store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/louisbranch/council.space/internal/services/council/domain"
)

var (
	// ErrNotFound indicates a requested conversation is missing.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidConversationID indicates an identifier that is not a
	// canonical UUID v4.
	ErrInvalidConversationID = errors.New("conversation id must be a canonical UUID v4")
)

// Message roles within a stored conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle names a conversation before title generation settles.
const DefaultTitle = "New Conversation"

// NewConversationID returns a fresh canonical UUID v4.
func NewConversationID() string {
	return uuid.NewString()
}

// ValidateConversationID rejects identifiers that are not canonical UUID v4
// strings. IDs become file and row keys, so nothing else is accepted.
func ValidateConversationID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	if parsed.Version() != 4 || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}

// StoredRanking is the durable slice of a stage-2 submission: the reviewer
// and its raw text. Parsed label permutations stay round-scoped.
type StoredRanking struct {
	Member  string `json:"model"`
	Ranking string `json:"ranking"`
}

// Message is one stored conversation turn. User turns carry Content;
// assistant turns carry the three stage payloads instead.
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content,omitempty"`
	Stage1  []domain.Answer   `json:"stage1,omitempty"`
	Stage2  []StoredRanking   `json:"stage2,omitempty"`
	Stage3  *domain.Synthesis `json:"stage3,omitempty"`
}

// Conversation is one stored deliberation thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Summary is the listing view of a conversation.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store persists conversations and their turns.
type Store interface {
	CreateConversation(ctx context.Context, conversation Conversation) error
	GetConversation(ctx context.Context, id string) (Conversation, error)
	ListConversations(ctx context.Context) ([]Summary, error)
	AppendUserMessage(ctx context.Context, conversationID, content string) error
	AppendRoundResult(ctx context.Context, conversationID string, result domain.RoundResult) error
	UpdateTitle(ctx context.Context, conversationID, title string) error
	Close() error
}

// AssistantMessage converts a settled round into its durable form, applying
// the size cap to every stage payload.
func AssistantMessage(result domain.RoundResult, maxBytes int) Message {
	message := Message{Role: RoleAssistant}

	for _, answer := range result.Stage1 {
		message.Stage1 = append(message.Stage1, domain.Answer{
			Member:   answer.Member,
			Response: Truncate(answer.Response, maxBytes),
		})
	}
	for _, submission := range result.Stage2 {
		message.Stage2 = append(message.Stage2, StoredRanking{
			Member:  submission.Member,
			Ranking: Truncate(submission.Raw, maxBytes),
		})
	}
	message.Stage3 = &domain.Synthesis{
		Member:   result.Stage3.Member,
		Response: Truncate(result.Stage3.Response, maxBytes),
	}
	return message
}
