package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/louisbranch/council.space/internal/platform/timeouts"
)

// Webhook event names.
const (
	WebhookConversationCreated = "conversation.created"
	WebhookStage1Complete      = "stage1.complete"
	WebhookStage2Complete      = "stage2.complete"
	WebhookStage3Complete      = "stage3.complete"
	WebhookCouncilComplete     = "council.complete"
	WebhookCouncilError        = "council.error"
)

// webhookRetryDelays schedules the re-delivery attempts after a failure.
var webhookRetryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// WebhookPayload is the wire form of one webhook delivery.
type WebhookPayload struct {
	Event          string         `json:"event"`
	Timestamp      string         `json:"timestamp"`
	ConversationID string         `json:"conversation_id"`
	Data           map[string]any `json:"data"`
}

// Notifier delivers webhook events asynchronously with retries. A notifier
// with no URL swallows every call, so callers never branch on configuration.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	wg     sync.WaitGroup

	// sleep is replaced in tests to skip the retry delays.
	sleep func(time.Duration)
}

// NewNotifier creates a webhook notifier. An empty URL disables delivery.
func NewNotifier(url, secret string) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeouts.WebhookDelivery},
		sleep:  time.Sleep,
	}
}

// Signature computes the hex HMAC-SHA256 of a payload body.
func Signature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Notify queues one event for background delivery. Failures are logged and
// never surfaced to the round that triggered them.
func (n *Notifier) Notify(event, conversationID string, data map[string]any) {
	if n == nil || n.url == "" {
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	payload := WebhookPayload{
		Event:          event,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ConversationID: conversationID,
		Data:           data,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.deliver(payload); err != nil {
			log.Printf("webhook %s for %s: %v", event, conversationID, err)
		}
	}()
}

// Close waits for in-flight deliveries to finish.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) deliver(payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(webhookRetryDelays); attempt++ {
		if attempt > 0 {
			n.sleep(webhookRetryDelays[attempt-1])
		}
		if lastErr = n.post(body, payload.Event); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("delivery failed after %d attempts: %w", len(webhookRetryDelays)+1, lastErr)
}

func (n *Notifier) post(body []byte, event string) error {
	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+Signature(body, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
