package orchestrator

import "github.com/louisbranch/council.space/internal/services/council/domain"

// EventType names a deliberation progress event.
type EventType string

const (
	EventStage1Start    EventType = "stage1_start"
	EventStage1Complete EventType = "stage1_complete"
	EventStage2Start    EventType = "stage2_start"
	EventStage2Complete EventType = "stage2_complete"
	EventStage3Start    EventType = "stage3_start"
	EventStage3Complete EventType = "stage3_complete"
	EventTitleComplete  EventType = "title_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// Event is one entry in a round's ordered progress stream. Stage, Message,
// and Retryable are set only on error events; Data and Metadata carry the
// stage payloads.
type Event struct {
	Type      EventType    `json:"type"`
	Stage     domain.Stage `json:"stage,omitempty"`
	Message   string       `json:"message,omitempty"`
	Retryable *bool        `json:"retryable,omitempty"`
	Data      any          `json:"data,omitempty"`
	Metadata  any          `json:"metadata,omitempty"`
}

// Sink receives events in emission order. The orchestrator calls it from a
// single goroutine and never after a terminal error event.
type Sink func(Event)

func stageStart(eventType EventType) Event {
	return Event{Type: eventType}
}

func stageComplete(eventType EventType, data, metadata any) Event {
	return Event{Type: eventType, Data: data, Metadata: metadata}
}

func errorEvent(stage domain.Stage, err error, retryable bool) Event {
	return Event{Type: EventError, Stage: stage, Message: err.Error(), Retryable: &retryable}
}

// TitleEvent announces an asynchronously generated conversation title.
func TitleEvent(title string) Event {
	return Event{Type: EventTitleComplete, Data: map[string]string{"title": title}}
}

// CompleteEvent marks a round as fully settled and persisted.
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}

// FailureEvent reports a failure outside any single stage, such as a storage
// error after synthesis.
func FailureEvent(err error, retryable bool) Event {
	return Event{Type: EventError, Message: err.Error(), Retryable: &retryable}
}
