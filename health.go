package timetable

import "sync"

// Health tracks whether the timetable is loaded and safe to query.
// The flag drops during a schedule reload and while no dataset has
// been loaded yet. Subscribers are notified on every change.
type Health struct {
	mu          sync.Mutex
	available   bool
	subscribers []func(bool)
}

func NewHealth() *Health {
	return &Health{}
}

// Available reports the current state.
func (h *Health) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available
}

// SetAvailable publishes the new state to all subscribers. Publishing
// happens even when the value is unchanged, so a subscriber can use
// the event as a refresh signal.
func (h *Health) SetAvailable(available bool) {
	h.mu.Lock()
	h.available = available
	subscribers := make([]func(bool), len(h.subscribers))
	copy(subscribers, h.subscribers)
	h.mu.Unlock()

	for _, fn := range subscribers {
		fn(available)
	}
}

// Subscribe registers a callback and immediately invokes it with the
// current state.
func (h *Health) Subscribe(fn func(bool)) {
	h.mu.Lock()
	h.subscribers = append(h.subscribers, fn)
	current := h.available
	h.mu.Unlock()

	fn(current)
}
