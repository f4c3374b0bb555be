package provider

import (
	"context"
	"encoding/json"
	"net/http"
)

// openAIClient speaks the OpenAI chat completions wire format. Perplexity and
// OpenRouter expose the same format, so they reuse this client with their own
// base URLs and provider IDs for error attribution.
type openAIClient struct {
	id         ID
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates a client for the OpenAI chat completions API.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) Client {
	return newChatCompletionsClient(OpenAI, apiKey, baseURL, "https://api.openai.com/v1", httpClient)
}

// NewPerplexity creates a client for the Perplexity API.
func NewPerplexity(apiKey, baseURL string, httpClient *http.Client) Client {
	return newChatCompletionsClient(Perplexity, apiKey, baseURL, "https://api.perplexity.ai", httpClient)
}

// NewOpenRouter creates a client for the OpenRouter API.
func NewOpenRouter(apiKey, baseURL string, httpClient *http.Client) Client {
	return newChatCompletionsClient(OpenRouter, apiKey, baseURL, "https://openrouter.ai/api/v1", httpClient)
}

func newChatCompletionsClient(id ID, apiKey, baseURL, defaultBaseURL string, httpClient *http.Client) Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &openAIClient{id: id, apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

type chatCompletionsPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Client.
func (c *openAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	payload := chatCompletionsPayload{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	body, err := postJSON(ctx, c.httpClient, c.id, c.baseURL+"/chat/completions", headers, payload, req.Timeout)
	if err != nil {
		return Response{}, err
	}

	var decoded chatCompletionsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, &Error{Provider: c.id, Kind: KindUpstream, Message: "malformed completion response", Err: err}
	}
	if len(decoded.Choices) == 0 {
		return Response{}, &Error{Provider: c.id, Kind: KindUpstream, Message: "completion response has no choices"}
	}
	return Response{Content: decoded.Choices[0].Message.Content}, nil
}
