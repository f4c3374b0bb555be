package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// geminiClient speaks the Gemini generateContent wire format.
type geminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGemini creates a client for the Gemini API.
func NewGemini(apiKey, baseURL string, httpClient *http.Client) Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &geminiClient{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPayload struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete implements Client.
//
// Gemini has no system role and names the assistant role "model", so roles are
// folded accordingly. The API key travels as a query parameter.
func (c *geminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := RoleUser
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}

	var payload geminiPayload
	payload.Contents = contents
	payload.GenerationConfig.Temperature = req.Temperature
	payload.GenerationConfig.MaxOutputTokens = req.MaxTokens

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)
	body, err := postJSON(ctx, c.httpClient, Gemini, url, nil, payload, req.Timeout)
	if err != nil {
		return Response{}, err
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, &Error{Provider: Gemini, Kind: KindUpstream, Message: "malformed generateContent response", Err: err}
	}
	if len(decoded.Candidates) == 0 {
		return Response{}, &Error{Provider: Gemini, Kind: KindUpstream, Message: "generateContent response has no candidates"}
	}

	var parts []string
	for _, part := range decoded.Candidates[0].Content.Parts {
		parts = append(parts, part.Text)
	}
	return Response{Content: strings.Join(parts, "")}, nil
}
