package storage

import (
	"fmt"
	"strings"

	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// HistoryStrategy picks how much of a prior round feeds the next one.
type HistoryStrategy string

const (
	// HistoryChairmanOnly replays only the chairman's final answers. The
	// default: it keeps follow-up context cheap for every member.
	HistoryChairmanOnly HistoryStrategy = "chairman_only"
	// HistoryFull replays every member's answer plus the final one.
	HistoryFull HistoryStrategy = "full"
	// HistoryNone starts every round from a blank context.
	HistoryNone HistoryStrategy = "none"
)

// DefaultMaxExchanges bounds how many prior user/assistant pairs are
// replayed as context.
const DefaultMaxExchanges = 5

// fullHistoryAnswerLimit caps each replayed member answer under HistoryFull.
const fullHistoryAnswerLimit = 500

// BuildHistory renders a conversation's prior turns as alternating
// user/assistant messages for a new completion request.
//
// Only complete exchanges count: a user turn with no assistant reply yet, or
// an orphaned assistant turn, is skipped. The result is capped to the last
// maxExchanges pairs.
func BuildHistory(conversation Conversation, strategy HistoryStrategy, maxExchanges int) []provider.Message {
	if strategy == HistoryNone {
		return nil
	}
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}

	var history []provider.Message
	messages := conversation.Messages
	for i := 0; i < len(messages); i++ {
		if messages[i].Role != RoleUser {
			continue
		}
		if i+1 >= len(messages) || messages[i+1].Role != RoleAssistant {
			continue
		}

		userContent := messages[i].Content
		assistantContent := assistantTurn(messages[i+1], strategy)
		if userContent == "" || assistantContent == "" {
			i++
			continue
		}

		history = append(history,
			provider.Message{Role: provider.RoleUser, Content: userContent},
			provider.Message{Role: provider.RoleAssistant, Content: assistantContent},
		)
		i++
	}

	if max := maxExchanges * 2; len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}

func assistantTurn(message Message, strategy HistoryStrategy) string {
	if message.Stage3 == nil {
		return ""
	}
	if strategy != HistoryFull {
		return message.Stage3.Response
	}

	var b strings.Builder
	b.WriteString("Council Responses:\n")
	for _, answer := range message.Stage1 {
		response := answer.Response
		if runes := []rune(response); len(runes) > fullHistoryAnswerLimit {
			response = string(runes[:fullHistoryAnswerLimit]) + "..."
		}
		fmt.Fprintf(&b, "**%s**: %s\n\n", answer.Member, response)
	}
	fmt.Fprintf(&b, "Final Answer:\n%s", message.Stage3.Response)
	return b.String()
}
