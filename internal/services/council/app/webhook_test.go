package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNotifierDelivers(t *testing.T) {
	type delivery struct {
		event     string
		signature string
		payload   WebhookPayload
		body      []byte
	}

	var mu sync.Mutex
	var deliveries []delivery
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		deliveries = append(deliveries, delivery{
			event:     r.Header.Get("X-Webhook-Event"),
			signature: r.Header.Get("X-Webhook-Signature"),
			payload:   payload,
			body:      body,
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	notifier := NewNotifier(receiver.URL, "hunter2")
	notifier.sleep = func(time.Duration) {}

	notifier.Notify(WebhookCouncilComplete, "conv-1", map[string]any{"failed_models": []string{}})
	notifier.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(deliveries))
	}
	got := deliveries[0]
	if got.event != WebhookCouncilComplete {
		t.Errorf("X-Webhook-Event = %q, want %q", got.event, WebhookCouncilComplete)
	}
	if want := "sha256=" + Signature(got.body, "hunter2"); got.signature != want {
		t.Errorf("X-Webhook-Signature = %q, want %q", got.signature, want)
	}
	if got.payload.Event != WebhookCouncilComplete || got.payload.ConversationID != "conv-1" {
		t.Errorf("payload = %+v, want event and conversation id", got.payload)
	}
	if _, err := time.Parse(time.RFC3339, got.payload.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", got.payload.Timestamp, err)
	}
}

func TestNotifierRetriesUntilSuccess(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		failing := attempts < 3
		mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	var slept []time.Duration
	notifier := NewNotifier(receiver.URL, "")
	notifier.sleep = func(d time.Duration) { slept = append(slept, d) }

	notifier.Notify(WebhookStage1Complete, "conv-1", nil)
	notifier.Close()

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want [1s 2s]", slept)
	}
}

func TestNotifierGivesUpAfterRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer receiver.Close()

	notifier := NewNotifier(receiver.URL, "")
	notifier.sleep = func(time.Duration) {}

	notifier.Notify(WebhookCouncilError, "conv-1", nil)
	notifier.Close()

	mu.Lock()
	defer mu.Unlock()
	if want := len(webhookRetryDelays) + 1; attempts != want {
		t.Fatalf("attempts = %d, want %d", attempts, want)
	}
}

func TestNotifierDisabledWithoutURL(t *testing.T) {
	notifier := NewNotifier("", "secret")
	// Must be a no-op, including through a nil receiver.
	notifier.Notify(WebhookConversationCreated, "conv-1", nil)
	notifier.Close()

	var nilNotifier *Notifier
	nilNotifier.Notify(WebhookConversationCreated, "conv-1", nil)
	nilNotifier.Close()
}

func TestSignature(t *testing.T) {
	// Stable vector so receivers can verify their own implementation.
	got := Signature([]byte(`{"event":"council.complete"}`), "secret")
	if len(got) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(got))
	}
	if got != Signature([]byte(`{"event":"council.complete"}`), "secret") {
		t.Fatal("signature is not deterministic")
	}
	if got == Signature([]byte(`{"event":"council.complete"}`), "other") {
		t.Fatal("signature ignores the secret")
	}
}
