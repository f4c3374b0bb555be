package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/council.space/internal/services/council/orchestrator"
)

const maxWSFrameBytes = 16 * 1024

// wsRequest is one deliberation request over the websocket transport.
type wsRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// wsEvent wraps a round event with the conversation it belongs to, since one
// connection can run rounds against several conversations in sequence.
type wsEvent struct {
	ConversationID string `json:"conversation_id"`
	orchestrator.Event
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *wsPeer) send(event wsEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.encoder.Encode(event); err != nil {
		log.Printf("ws: write event: %v", err)
	}
}

// wsHandler serves the websocket deliberation transport: the client sends one
// request frame at a time and receives the round's event stream back.
func (h *handlers) wsHandler() websocket.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer func() { _ = conn.Close() }()
		conn.MaxPayloadBytes = maxWSFrameBytes

		ctx := conn.Request().Context()
		decoder := json.NewDecoder(conn)
		peer := &wsPeer{encoder: json.NewEncoder(conn)}

		for {
			var request wsRequest
			if err := decoder.Decode(&request); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				log.Printf("ws: decode request: %v", err)
				return
			}

			conversationID := strings.TrimSpace(request.ConversationID)
			sink := func(event orchestrator.Event) {
				peer.send(wsEvent{ConversationID: conversationID, Event: event})
			}

			if conversationID == "" || strings.TrimSpace(request.Content) == "" {
				sink(orchestrator.FailureEvent(errors.New("conversation_id and content are required"), false))
				continue
			}

			// Rounds run one at a time per connection; the event stream
			// orders frames for the client.
			_, _ = h.runRound(ctx, conversationID, request.Content, sink)
		}
	})
}
