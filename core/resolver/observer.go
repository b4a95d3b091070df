package resolver

import (
	"maps"
	"sync"
	"time"

	"github.com/willibrandon/gowiz/observability"
)

// Graph events passed to an Observer.
const (
	EventGraphCreated        = "graph.created"
	EventNodeCreated         = "node.created"
	EventNodeRemoved         = "node.removed"
	EventLinkCreated         = "link.created"
	EventNodeConditioned     = "node.conditioned"
	EventDistancesComputed   = "distances.computed"
	EventConflictsIdentified = "conflicts.identified"
	EventGraphDivided        = "graph.divided"
	EventPackagesExtracted   = "packages.extracted"
)

// Observer receives graph events. Implementations must not retain or
// modify the context map after Record returns unless they copy it.
type Observer interface {
	Record(event string, context map[string]any)
}

// NopObserver discards every event.
type NopObserver struct{}

// Record implements Observer.
func (NopObserver) Record(string, map[string]any) {}

// Event is one recorded graph event.
type Event struct {
	Name    string
	Context map[string]any
	Time    time.Time
}

// HistoryRecorder keeps every event in memory.
type HistoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewHistoryRecorder creates an empty recorder.
func NewHistoryRecorder() *HistoryRecorder {
	return &HistoryRecorder{}
}

// Record implements Observer.
func (h *HistoryRecorder) Record(event string, context map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, Event{Name: event, Context: maps.Clone(context), Time: time.Now()})
}

// Events returns a copy of the recorded events in order.
func (h *HistoryRecorder) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Named returns the recorded events with the given name.
func (h *HistoryRecorder) Named(name string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var events []Event
	for _, event := range h.events {
		if event.Name == name {
			events = append(events, event)
		}
	}
	return events
}

// Reset drops every recorded event.
func (h *HistoryRecorder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

// LogObserver writes every event to a logger at Verbose level.
type LogObserver struct {
	logger observability.Logger
}

// NewLogObserver creates an observer logging through logger.
func NewLogObserver(logger observability.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Record implements Observer.
func (o *LogObserver) Record(event string, context map[string]any) {
	o.logger.Verbose("Graph event {Event} {@Context}", event, context)
}
