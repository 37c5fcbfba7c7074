package server

import (
	"sync"

	"mp4tomp3/model"
)

// ProgressHub fans conversion progress out to websocket subscribers. Each job
// has its own subscriber set; events for jobs nobody watches are dropped.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.ProgressEvent]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan model.ProgressEvent]struct{}),
	}
}

// Subscribe registers a listener for a job's events. The returned channel is
// buffered; slow consumers lose intermediate events rather than blocking the
// conversion.
func (h *ProgressHub) Subscribe(jobID string) chan model.ProgressEvent {
	ch := make(chan model.ProgressEvent, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan model.ProgressEvent]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *ProgressHub) Unsubscribe(jobID string, ch chan model.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[jobID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subs, jobID)
		}
	}
}

// Publish delivers an event to all current subscribers of the job.
func (h *ProgressHub) Publish(event model.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}
