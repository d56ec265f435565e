package service

import (
	"context"
	"sync"
)

// Event names published by the services.
const (
	EventCanvasChanged        = "canvas:changed"
	EventCanvasExternalChange = "canvas:external-change"
	EventExecutionProgress    = "execution:progress"
	EventExecutionFinished    = "execution:finished"
	EventChatMessage          = "chat:message"
	EventChatReply            = "chat:reply"
	EventChatSuggestion       = "chat:suggestion"
	EventTemplatesChanged     = "templates:changed"
	EventWorkflowSaved        = "workflow:saved"
	EventWorkflowLoaded       = "workflow:loaded"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from the transport
// ─────────────────────────────────────────────────────────────

// EventEmitter publishes service events. The desktop App forwards them to
// wailsRuntime.EventsEmit, the websocket hub broadcasts them to clients and
// tests record them with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Timer callbacks emit from their own goroutines, so access is locked.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Snapshot returns a copy of the recorded events.
func (m *MockEmitter) Snapshot() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}

// Named returns the recorded events called event, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	var out []EmittedEvent
	for _, e := range m.Snapshot() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
