package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// anthropicClient speaks the Anthropic messages wire format.
type anthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropic creates a client for the Anthropic messages API.
func NewAnthropic(apiKey, baseURL string, httpClient *http.Client) Client {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &anthropicClient{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

type anthropicPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements Client.
//
// Anthropic requires the system prompt separate from the message list, so a
// leading system message is lifted into the dedicated field.
func (c *anthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := req.Messages
	system := ""
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		system = messages[0].Content
		messages = messages[1:]
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	payload := anthropicPayload{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	body, err := postJSON(ctx, c.httpClient, Anthropic, c.baseURL+"/messages", headers, payload, req.Timeout)
	if err != nil {
		return Response{}, err
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, &Error{Provider: Anthropic, Kind: KindUpstream, Message: "malformed messages response", Err: err}
	}

	var parts []string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return Response{Content: strings.Join(parts, "")}, nil
}
