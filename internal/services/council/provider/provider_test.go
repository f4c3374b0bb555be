package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		name         string
		modelID      string
		wantProvider ID
		wantModel    string
		wantErr      error
	}{
		{"openai", "openai:gpt-5.1", OpenAI, "gpt-5.1", nil},
		{"anthropic", "anthropic:claude-sonnet-4-5", Anthropic, "claude-sonnet-4-5", nil},
		{"openrouter nested slash", "openrouter:x-ai/grok-4", OpenRouter, "x-ai/grok-4", nil},
		{"missing separator", "gpt-5.1", "", "", ErrInvalidModelID},
		{"empty provider", ":gpt-5.1", "", "", ErrInvalidModelID},
		{"empty model", "openai:", "", "", ErrInvalidModelID},
		{"unknown provider", "mistral:large", "", "", ErrUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotProvider, gotModel, err := ParseModelID(tt.modelID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseModelID(%q) error = %v, want %v", tt.modelID, err, tt.wantErr)
			}
			if gotProvider != tt.wantProvider || gotModel != tt.wantModel {
				t.Fatalf("ParseModelID(%q) = %q, %q, want %q, %q", tt.modelID, gotProvider, gotModel, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestErrorRetryable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindAuth, false},
		{KindRateLimit, false},
		{KindInvalidRequest, false},
		{KindUpstream, true},
		{KindTimeout, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &Error{Provider: OpenAI, Kind: tt.kind}
			if got := err.Retryable(); got != tt.want {
				t.Fatalf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusBadRequest, KindInvalidRequest},
		{http.StatusNotFound, KindInvalidRequest},
		{http.StatusInternalServerError, KindUpstream},
		{http.StatusBadGateway, KindUpstream},
		{http.StatusServiceUnavailable, KindUpstream},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestOpenAICompleteSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", srv.URL, srv.Client())
	resp, err := client.Complete(context.Background(), Request{
		Model:    "gpt-5.1",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("Complete() content = %q, want %q", resp.Content, "hello")
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q, want bearer token", gotAuth)
	}
	if gotPayload["model"] != "gpt-5.1" {
		t.Errorf("payload model = %v, want gpt-5.1", gotPayload["model"])
	}
}

func TestOpenAICompleteErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindAuth},
		{"rate limited", http.StatusTooManyRequests, KindRateLimit},
		{"bad request", http.StatusBadRequest, KindInvalidRequest},
		{"server error", http.StatusInternalServerError, KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream says no", tt.status)
			}))
			defer srv.Close()

			client := NewOpenAI("sk-test", srv.URL, srv.Client())
			_, err := client.Complete(context.Background(), Request{
				Model:    "gpt-5.1",
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			})
			var provErr *Error
			if !errors.As(err, &provErr) {
				t.Fatalf("Complete() error = %v, want *Error", err)
			}
			if provErr.Kind != tt.wantKind {
				t.Fatalf("error kind = %q, want %q", provErr.Kind, tt.wantKind)
			}
			if provErr.Status != tt.status {
				t.Fatalf("error status = %d, want %d", provErr.Status, tt.status)
			}
			if provErr.Provider != OpenAI {
				t.Fatalf("error provider = %q, want %q", provErr.Provider, OpenAI)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", srv.URL, srv.Client())
	_, err := client.Complete(context.Background(), Request{
		Model:    "gpt-5.1",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Timeout:  10 * time.Millisecond,
	})
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("Complete() error = %v, want *Error", err)
	}
	if provErr.Kind != KindTimeout {
		t.Fatalf("error kind = %q, want %q", provErr.Kind, KindTimeout)
	}
	if !provErr.Retryable() {
		t.Fatal("timeout errors must be retryable")
	}
}

func TestAnthropicCompleteLiftsSystemMessage(t *testing.T) {
	var gotPayload struct {
		System   string    `json:"system"`
		Messages []Message `json:"messages"`
		Model    string    `json:"model"`
	}
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, err := w.Write([]byte(`{"content":[{"type":"text","text":"from "},{"type":"text","text":"claude"}]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewAnthropic("ak-test", srv.URL, srv.Client())
	resp, err := client.Complete(context.Background(), Request{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "from claude" {
		t.Fatalf("Complete() content = %q, want %q", resp.Content, "from claude")
	}
	if gotPayload.System != "be brief" {
		t.Errorf("system = %q, want lifted system prompt", gotPayload.System)
	}
	if len(gotPayload.Messages) != 1 || gotPayload.Messages[0].Role != RoleUser {
		t.Errorf("messages = %+v, want only the user turn", gotPayload.Messages)
	}
	if gotKey != "ak-test" {
		t.Errorf("x-api-key = %q, want ak-test", gotKey)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header missing")
	}
}

func TestGeminiCompleteFoldsRoles(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, err := w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini says"}]}}]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewGemini("gk-test", srv.URL, srv.Client())
	resp, err := client.Complete(context.Background(), Request{
		Model: "gemini-3-pro",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "more"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "gemini says" {
		t.Fatalf("Complete() content = %q, want %q", resp.Content, "gemini says")
	}
	if !strings.HasSuffix(gotPath, "/models/gemini-3-pro:generateContent") {
		t.Errorf("path = %q, want generateContent endpoint", gotPath)
	}
	if gotKey != "gk-test" {
		t.Errorf("key query param = %q, want gk-test", gotKey)
	}
	if len(gotPayload.Contents) != 3 {
		t.Fatalf("contents length = %d, want 3", len(gotPayload.Contents))
	}
	if gotPayload.Contents[1].Role != "model" {
		t.Errorf("assistant role folded to %q, want model", gotPayload.Contents[1].Role)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"choices":[]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", srv.URL, srv.Client())
	_, err := client.Complete(context.Background(), Request{
		Model:    "gpt-5.1",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("Complete() error = %v, want *Error", err)
	}
	if provErr.Kind != KindUpstream {
		t.Fatalf("error kind = %q, want %q", provErr.Kind, KindUpstream)
	}
}
