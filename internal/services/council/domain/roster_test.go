package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/louisbranch/council.space/internal/services/council/provider"
)

type fakeCreds map[provider.ID]bool

func (f fakeCreds) Configured(id provider.ID) bool { return f[id] }

func allCreds() fakeCreds {
	creds := fakeCreds{}
	for _, id := range provider.Supported {
		creds[id] = true
	}
	return creds
}

func TestNewRoster(t *testing.T) {
	roster, err := NewRoster(
		[]string{"openai:gpt-5.1", " anthropic:claude-sonnet-4-5 ", ""},
		"gemini:gemini-3-pro",
		"perplexity:sonar-pro",
	)
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	if len(roster.Council) != 2 {
		t.Fatalf("council size = %d, want 2", len(roster.Council))
	}
	if roster.Council[0].Provider != provider.OpenAI || roster.Council[0].Model != "gpt-5.1" {
		t.Errorf("council[0] = %+v, want openai gpt-5.1", roster.Council[0])
	}
	if roster.Council[1].Role != RoleCouncil {
		t.Errorf("council[1] role = %q, want %q", roster.Council[1].Role, RoleCouncil)
	}
	if roster.Chairman.Provider != provider.Gemini || roster.Chairman.Role != RoleChairman {
		t.Errorf("chairman = %+v, want gemini chairman", roster.Chairman)
	}
	if roster.Research == nil || roster.Research.Provider != provider.Perplexity {
		t.Errorf("research = %+v, want perplexity member", roster.Research)
	}
}

func TestNewRosterNoResearch(t *testing.T) {
	roster, err := NewRoster([]string{"openai:gpt-5.1", "anthropic:claude-sonnet-4-5"}, "openai:gpt-5.1", "")
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	if roster.Research != nil {
		t.Fatalf("research = %+v, want nil", roster.Research)
	}
}

func TestNewRosterInvalidModel(t *testing.T) {
	tests := []struct {
		name     string
		council  []string
		chairman string
		wantErr  error
	}{
		{"bad council model", []string{"gpt-5.1"}, "openai:gpt-5.1", provider.ErrInvalidModelID},
		{"bad chairman model", []string{"openai:gpt-5.1"}, "mistral:large", provider.ErrUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoster(tt.council, tt.chairman, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRoster() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRosterValidate(t *testing.T) {
	tests := []struct {
		name         string
		council      []string
		chairman     string
		research     string
		creds        fakeCreds
		wantProblems int
	}{
		{
			name:     "valid",
			council:  []string{"openai:gpt-5.1", "anthropic:claude-sonnet-4-5"},
			chairman: "gemini:gemini-3-pro",
			creds:    allCreds(),
		},
		{
			name:         "council too small",
			council:      []string{"openai:gpt-5.1"},
			chairman:     "openai:gpt-5.1",
			creds:        allCreds(),
			wantProblems: 1,
		},
		{
			name: "council too large",
			council: []string{
				"openai:a", "openai:b", "openai:c", "openai:d",
				"openai:e", "openai:f", "openai:g", "openai:h",
			},
			chairman:     "openai:gpt-5.1",
			creds:        allCreds(),
			wantProblems: 1,
		},
		{
			name:         "empty council and no chairman",
			council:      nil,
			chairman:     "",
			creds:        allCreds(),
			wantProblems: 2,
		},
		{
			name:         "missing credentials collected per member",
			council:      []string{"openai:gpt-5.1", "anthropic:claude-sonnet-4-5"},
			chairman:     "gemini:gemini-3-pro",
			research:     "perplexity:sonar-pro",
			creds:        fakeCreds{provider.OpenAI: true},
			wantProblems: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster, err := NewRoster(tt.council, tt.chairman, tt.research)
			if err != nil {
				t.Fatalf("NewRoster() error = %v", err)
			}

			err = roster.Validate(tt.creds)
			if tt.wantProblems == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if len(valErr.Problems) != tt.wantProblems {
				t.Fatalf("problems = %d (%v), want %d", len(valErr.Problems), valErr.Problems, tt.wantProblems)
			}
		})
	}
}

func TestRosterWarnings(t *testing.T) {
	single, err := NewRoster([]string{"openai:gpt-5.1", "openai:gpt-5.1-mini"}, "openai:gpt-5.1", "")
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	warnings := single.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "openai") {
		t.Fatalf("Warnings() = %v, want a single-provider warning", warnings)
	}

	mixed, err := NewRoster([]string{"openai:gpt-5.1", "anthropic:claude-sonnet-4-5"}, "openai:gpt-5.1", "")
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	if warnings := mixed.Warnings(); len(warnings) != 0 {
		t.Fatalf("Warnings() = %v, want none for a mixed roster", warnings)
	}
}
