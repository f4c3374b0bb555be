// Package provider defines the uniform completion contract for language-model
// backends and one concrete client per provider family.
//
// Clients are pure network I/O: they translate a Request into the family's
// wire format and classify backend failures into the shared error taxonomy.
// They hold no mutable state and are safe to share across concurrent rounds.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ID identifies a provider family.
type ID string

const (
	OpenAI     ID = "openai"
	Anthropic  ID = "anthropic"
	Gemini     ID = "gemini"
	Perplexity ID = "perplexity"
	OpenRouter ID = "openrouter"
)

// Supported lists the provider families in stable order.
var Supported = []ID{OpenAI, Anthropic, Gemini, Perplexity, OpenRouter}

// ErrInvalidModelID indicates a model identifier is not in provider:model form.
var ErrInvalidModelID = errors.New("model id must use provider:model format")

// ErrUnsupportedProvider indicates an unknown provider family.
var ErrUnsupportedProvider = errors.New("provider is not supported")

// ParseModelID splits a "provider:model" identifier into its components.
func ParseModelID(modelID string) (ID, string, error) {
	providerPart, modelPart, ok := strings.Cut(modelID, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModelID, modelID)
	}
	providerPart = strings.TrimSpace(providerPart)
	modelPart = strings.TrimSpace(modelPart)
	if providerPart == "" || modelPart == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModelID, modelID)
	}
	id := ID(strings.ToLower(providerPart))
	for _, known := range Supported {
		if id == known {
			return id, modelPart, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerPart)
}

// Chat message roles shared across provider families.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request holds completion parameters shared by every provider family.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Response is a successful completion.
type Response struct {
	Content string
}

// Client generates completions against a single provider family.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind string

const (
	// KindAuth covers missing or rejected credentials. Never retried.
	KindAuth ErrorKind = "auth"
	// KindRateLimit covers provider throttling. Never retried within a call.
	KindRateLimit ErrorKind = "rate_limit"
	// KindInvalidRequest covers malformed requests and unknown models. Never retried.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindUpstream covers provider-side failures. Retried.
	KindUpstream ErrorKind = "upstream"
	// KindTimeout covers deadline and transport failures. Retried.
	KindTimeout ErrorKind = "timeout"
)

// Error is the uniform failure type surfaced by every Client.
type Error struct {
	Provider ID
	Kind     ErrorKind
	Status   int
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the failure class is eligible for retries.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindUpstream || e.Kind == KindTimeout
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 400 && status < 500:
		return KindInvalidRequest
	default:
		return KindUpstream
	}
}

// statusError builds an Error from a non-2xx provider response body.
func statusError(id ID, status int, body []byte) *Error {
	message := strings.TrimSpace(string(body))
	const maxMessageBytes = 512
	if len(message) > maxMessageBytes {
		message = message[:maxMessageBytes]
	}
	return &Error{Provider: id, Kind: classifyStatus(status), Status: status, Message: message}
}

// transportError wraps a transport-level failure, treating deadline expiry as
// a timeout and everything else as an upstream network fault.
func transportError(id ID, err error) *Error {
	kind := KindUpstream
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Provider: id, Kind: kind, Message: err.Error(), Err: err}
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
