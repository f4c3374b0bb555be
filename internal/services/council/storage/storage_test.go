package storage

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/louisbranch/council.space/internal/services/council/domain"
)

func TestValidateConversationID(t *testing.T) {
	valid := NewConversationID()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"fresh id", valid, false},
		{"canonical v4", "ba7b8108-4ae1-4b63-8a65-c6cdef305267", false},
		{"uppercase", strings.ToUpper(valid), true},
		{"braced form", "{" + valid + "}", true},
		{"not a uuid", "not-a-uuid", true},
		{"path traversal", "../../etc/passwd", true},
		{"uuid v1", "2a8e6458-8f40-11ee-b9d1-0242ac120002", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConversationID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConversationID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxBytes int
		want     string
	}{
		{"under limit", "short", 100, "short"},
		{"at limit", "12345", 5, "12345"},
		{"over limit", "1234567890", 5, "12345" + TruncationMarker},
		{"disabled cap", strings.Repeat("x", 100), 0, strings.Repeat("x", 100)},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.maxBytes); got != tt.want {
				t.Fatalf("Truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	// Each é is two bytes; cutting at 5 lands mid-rune.
	text := "ééééé"
	got := Truncate(text, 5)

	trimmed := strings.TrimSuffix(got, TruncationMarker)
	if trimmed == got {
		t.Fatalf("Truncate() = %q, missing marker", got)
	}
	if !utf8.ValidString(trimmed) {
		t.Fatalf("Truncate() produced invalid UTF-8: %q", trimmed)
	}
	if trimmed != "éé" {
		t.Fatalf("Truncate() kept %q, want %q", trimmed, "éé")
	}
}

func TestAssistantMessage(t *testing.T) {
	result := domain.RoundResult{
		Stage1: []domain.Answer{
			{Member: "openai:alpha", Response: strings.Repeat("a", 20)},
		},
		Stage2: []domain.RankingSubmission{
			{Member: "openai:alpha", Raw: strings.Repeat("r", 20), Labels: []string{"Response A"}},
		},
		Stage3: domain.Synthesis{Member: "openai:chairman", Response: strings.Repeat("s", 20)},
		Metadata: domain.RoundMetadata{
			LabelToMember: map[string]string{"Response A": "openai:alpha"},
		},
	}

	message := AssistantMessage(result, 10)

	if message.Role != RoleAssistant {
		t.Fatalf("role = %q, want %q", message.Role, RoleAssistant)
	}
	if got := message.Stage1[0].Response; got != strings.Repeat("a", 10)+TruncationMarker {
		t.Errorf("stage1 response = %q, want truncated", got)
	}
	if got := message.Stage2[0].Ranking; got != strings.Repeat("r", 10)+TruncationMarker {
		t.Errorf("stage2 ranking = %q, want truncated", got)
	}
	if got := message.Stage3.Response; got != strings.Repeat("s", 10)+TruncationMarker {
		t.Errorf("stage3 response = %q, want truncated", got)
	}
}

func TestBuildHistoryChairmanOnly(t *testing.T) {
	conversation := Conversation{
		Messages: []Message{
			{Role: RoleUser, Content: "first question"},
			{
				Role:   RoleAssistant,
				Stage1: []domain.Answer{{Member: "openai:alpha", Response: "alpha's take"}},
				Stage3: &domain.Synthesis{Member: "openai:chairman", Response: "first answer"},
			},
			{Role: RoleUser, Content: "pending question"},
		},
	}

	history := BuildHistory(conversation, HistoryChairmanOnly, 5)
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want 2 (pending turn skipped)", len(history))
	}
	if history[0].Content != "first question" {
		t.Errorf("history[0] = %q, want the user turn", history[0].Content)
	}
	if history[1].Content != "first answer" {
		t.Errorf("history[1] = %q, want the chairman response only", history[1].Content)
	}
	if strings.Contains(history[1].Content, "alpha's take") {
		t.Error("chairman-only history leaked a stage-1 answer")
	}
}

func TestBuildHistoryFull(t *testing.T) {
	conversation := Conversation{
		Messages: []Message{
			{Role: RoleUser, Content: "question"},
			{
				Role:   RoleAssistant,
				Stage1: []domain.Answer{{Member: "openai:alpha", Response: "alpha's take"}},
				Stage3: &domain.Synthesis{Member: "openai:chairman", Response: "the answer"},
			},
		},
	}

	history := BuildHistory(conversation, HistoryFull, 5)
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want 2", len(history))
	}
	if !strings.Contains(history[1].Content, "alpha's take") {
		t.Error("full history missing the stage-1 answer")
	}
	if !strings.Contains(history[1].Content, "the answer") {
		t.Error("full history missing the final answer")
	}
}

func TestBuildHistoryNone(t *testing.T) {
	conversation := Conversation{
		Messages: []Message{
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Stage3: &domain.Synthesis{Response: "answer"}},
		},
	}
	if history := BuildHistory(conversation, HistoryNone, 5); history != nil {
		t.Fatalf("history = %v, want nil", history)
	}
}

func TestBuildHistoryCapsExchanges(t *testing.T) {
	var conversation Conversation
	for i := 0; i < 8; i++ {
		conversation.Messages = append(conversation.Messages,
			Message{Role: RoleUser, Content: "question"},
			Message{Role: RoleAssistant, Stage3: &domain.Synthesis{Response: "answer"}},
		)
	}

	history := BuildHistory(conversation, HistoryChairmanOnly, 3)
	if len(history) != 6 {
		t.Fatalf("history = %d messages, want last 3 exchanges", len(history))
	}
}
