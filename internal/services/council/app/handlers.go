package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/council.space/internal/platform/timeouts"
	"github.com/louisbranch/council.space/internal/services/council/catalog"
	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/orchestrator"
	"github.com/louisbranch/council.space/internal/services/council/provider"
	"github.com/louisbranch/council.space/internal/services/council/storage"
)

// Deliberator runs deliberation rounds. *orchestrator.Orchestrator satisfies it.
type Deliberator interface {
	Deliberate(ctx context.Context, history []provider.Message, prompt string, sink orchestrator.Sink) (domain.RoundResult, error)
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

type handlers struct {
	store    storage.Store
	engine   Deliberator
	roster   domain.Roster
	creds    domain.CredentialChecker
	history  storage.HistoryStrategy
	notifier *Notifier
}

func newHandler(h *handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /api/models", h.listModels)
	mux.HandleFunc("GET /api/presets", h.listPresets)
	mux.HandleFunc("GET /api/config", h.currentConfig)
	mux.HandleFunc("GET /api/conversations", h.listConversations)
	mux.HandleFunc("POST /api/conversations", h.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}", h.getConversation)
	mux.HandleFunc("POST /api/conversations/{id}/message", h.sendMessage)
	mux.HandleFunc("POST /api/conversations/{id}/message/stream", h.sendMessageStream)
	mux.Handle("GET /api/ws", h.wsHandler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// storageStatus maps storage failures onto HTTP statuses.
func storageStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidConversationID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// healthz reports system status, provider availability, and the roster. No
// secrets leave this endpoint, only whether each provider has credentials.
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	providers := map[string]map[string]bool{}
	for _, id := range provider.Supported {
		providers[string(id)] = map[string]bool{"enabled": h.creds.Configured(id)}
	}

	councilModels := make([]string, 0, len(h.roster.Council))
	for _, member := range h.roster.Council {
		councilModels = append(councilModels, member.ModelID)
	}
	roles := map[string]any{
		"council":  councilModels,
		"chairman": h.roster.Chairman.ModelID,
	}
	if h.roster.Research != nil {
		roles["research"] = h.roster.Research.ModelID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": providers,
		"roles":     roles,
	})
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	type modelEntry struct {
		catalog.Model
		FullID     string `json:"full_id"`
		Configured bool   `json:"configured"`
	}
	models := catalog.Models()
	entries := make([]modelEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, modelEntry{
			Model:      model,
			FullID:     model.FullID(),
			Configured: h.creds.Configured(model.Provider),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": entries})
}

func (h *handlers) listPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": catalog.Presets()})
}

func (h *handlers) currentConfig(w http.ResponseWriter, r *http.Request) {
	councilModels := make([]string, 0, len(h.roster.Council))
	for _, member := range h.roster.Council {
		councilModels = append(councilModels, member.ModelID)
	}
	config := map[string]any{
		"council_models": councilModels,
		"chairman_model": h.roster.Chairman.ModelID,
	}
	if h.roster.Research != nil {
		config["research_model"] = h.roster.Research.ModelID
	}
	providers := map[string]bool{}
	for _, id := range provider.Supported {
		providers[string(id)] = h.creds.Configured(id)
	}
	config["providers"] = providers
	writeJSON(w, http.StatusOK, config)
}

func (h *handlers) listConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListConversations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

func (h *handlers) createConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if r.Body != nil {
		// An empty body is fine; the server generates the id.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.ID == "" {
		body.ID = storage.NewConversationID()
	} else if err := storage.ValidateConversationID(body.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conversation := storage.Conversation{
		ID:        body.ID,
		Title:     storage.DefaultTitle,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateConversation(r.Context(), conversation); err != nil {
		writeError(w, storageStatus(err), err.Error())
		return
	}

	h.notifier.Notify(WebhookConversationCreated, conversation.ID, nil)
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *handlers) getConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.store.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storageStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func decodeMessageRequest(r *http.Request) (sendMessageRequest, error) {
	var body sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return body, fmt.Errorf("message content is required")
	}
	return body, nil
}

// sendMessage runs a full round and returns every stage at once.
func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	body, err := decodeMessageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runRound(r.Context(), r.PathValue("id"), body.Content, nil)
	if err != nil {
		if status := storageStatus(err); status != http.StatusInternalServerError {
			writeError(w, status, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stage1":   result.Stage1,
		"stage2":   result.Stage2,
		"stage3":   result.Stage3,
		"metadata": result.Metadata,
	})
}

// sendMessageStream runs a full round, streaming progress as Server-Sent
// Events while the stages settle.
func (h *handlers) sendMessageStream(w http.ResponseWriter, r *http.Request) {
	body, err := decodeMessageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sink := func(event orchestrator.Event) {
		encoded, err := json.Marshal(event)
		if err != nil {
			log.Printf("encode stream event: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", encoded)
		flusher.Flush()
	}

	// Terminal errors already reached the stream as error events.
	_, _ = h.runRound(r.Context(), r.PathValue("id"), body.Content, sink)
}

// runRound is the shared round flow: persist the user turn, deliberate with
// prior history, persist the outcome, then settle title and completion.
func (h *handlers) runRound(ctx context.Context, conversationID, content string, sink orchestrator.Sink) (domain.RoundResult, error) {
	if sink == nil {
		sink = func(orchestrator.Event) {}
	}

	conversation, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		sink(orchestrator.FailureEvent(err, false))
		return domain.RoundResult{}, err
	}
	isFirstMessage := len(conversation.Messages) == 0

	if err := h.store.AppendUserMessage(ctx, conversationID, content); err != nil {
		sink(orchestrator.FailureEvent(err, false))
		return domain.RoundResult{}, err
	}

	var titleCh chan string
	if isFirstMessage {
		titleCh = make(chan string, 1)
		go func() {
			titleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.AuxiliaryCall)
			defer cancel()
			title, err := h.engine.GenerateTitle(titleCtx, content)
			if err != nil {
				log.Printf("title generation failed for %s: %v", conversationID, err)
				title = ""
			}
			titleCh <- title
		}()
	}

	result, err := h.engine.Deliberate(ctx, storage.BuildHistory(conversation, h.history, storage.DefaultMaxExchanges), content, h.notifyingSink(conversationID, sink))
	if err != nil {
		h.notifier.Notify(WebhookCouncilError, conversationID, map[string]any{"error": err.Error()})
		return domain.RoundResult{}, err
	}

	if err := h.store.AppendRoundResult(ctx, conversationID, result); err != nil {
		sink(orchestrator.FailureEvent(err, false))
		return domain.RoundResult{}, err
	}

	if titleCh != nil {
		if title := <-titleCh; title != "" {
			if err := h.store.UpdateTitle(ctx, conversationID, title); err != nil {
				log.Printf("update title for %s: %v", conversationID, err)
			} else {
				sink(orchestrator.TitleEvent(title))
			}
		}
	}

	sink(orchestrator.CompleteEvent())
	h.notifier.Notify(WebhookCouncilComplete, conversationID, map[string]any{
		"failed_models": result.Metadata.FailedMembers,
	})
	return result, nil
}

// notifyingSink forwards events to the caller's sink and mirrors stage
// completions to the webhook notifier.
func (h *handlers) notifyingSink(conversationID string, sink orchestrator.Sink) orchestrator.Sink {
	return func(event orchestrator.Event) {
		switch event.Type {
		case orchestrator.EventStage1Complete:
			h.notifier.Notify(WebhookStage1Complete, conversationID, nil)
		case orchestrator.EventStage2Complete:
			h.notifier.Notify(WebhookStage2Complete, conversationID, nil)
		case orchestrator.EventStage3Complete:
			h.notifier.Notify(WebhookStage3Complete, conversationID, nil)
		}
		sink(event)
	}
}
