// Package events fans launcher events out to subscribers.
//
// Each app id has a single producer (the orchestrator job running for it), so
// per-subscriber FIFO channels preserve that producer's order. Progress
// events are dropped for a subscriber whose buffer is full; terminal events
// are delivered with a bounded wait so a subscriber never misses the outcome
// of a run unless it stops reading entirely.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

const (
	DefaultBuffer       = 64
	DefaultTerminalWait = 5 * time.Second
)

// Subscription receives events for one app id, or for every app when the filter is empty
type Subscription struct {
	C <-chan types.Event

	ch     chan types.Event
	appID  string
	done   chan struct{}
	closed sync.Once

	// sendMu is held shared by senders and exclusively to close ch
	sendMu sync.RWMutex
	gone   bool
}

func (s *Subscription) wants(appID string) bool {
	return s.appID == "" || s.appID == appID
}

// offer delivers evt without blocking and reports whether it was queued
func (s *Subscription) offer(evt types.Event) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.gone {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

// deliver waits up to wait for room, returning false on timeout
func (s *Subscription) deliver(evt types.Event, wait time.Duration) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.gone {
		return true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.ch <- evt:
	case <-s.done:
	case <-timer.C:
		return false
	}
	return true
}

func (s *Subscription) shut() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.gone {
		s.gone = true
		close(s.ch)
	}
}

// Hub manages subscribers
type Hub struct {
	mu           sync.RWMutex
	subscribers  map[*Subscription]struct{}
	lastMu       sync.Mutex
	last         map[string]types.Event
	buffer       int
	terminalWait time.Duration
	logger       *logging.Logger
}

// NewHub creates an event hub
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subscribers:  make(map[*Subscription]struct{}),
		last:         make(map[string]types.Event),
		buffer:       DefaultBuffer,
		terminalWait: DefaultTerminalWait,
		logger:       logger.Component("events"),
	}
}

// WithTerminalWait overrides how long Publish waits on a full subscriber for a terminal event
func (h *Hub) WithTerminalWait(d time.Duration) *Hub {
	h.terminalWait = d
	return h
}

// Subscribe registers a subscriber. An empty appID receives every app's events.
func (h *Hub) Subscribe(appID string) *Subscription {
	ch := make(chan types.Event, h.buffer)
	sub := &Subscription{
		C:     ch,
		ch:    ch,
		appID: appID,
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	// Release a Publish blocked on this subscriber before closing its channel.
	sub.closed.Do(func() { close(sub.done) })

	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()

	if ok {
		sub.shut()
	}
}

// Publish stamps and delivers an event
func (h *Hub) Publish(evt types.Event) {
	if evt.ID == "" {
		evt.ID = id.NewEventID().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.lastMu.Lock()
	h.last[evt.AppID] = evt
	h.lastMu.Unlock()

	for _, sub := range h.targets(evt.AppID) {
		if !evt.Type.Terminal() {
			// Dropped for a subscriber that is behind; later progress supersedes it
			sub.offer(evt)
			continue
		}
		if !sub.deliver(evt, h.terminalWait) {
			h.logger.Warn("Dropped terminal event for stalled subscriber",
				zap.String("app_id", evt.AppID),
				zap.String("type", string(evt.Type)),
			)
		}
	}
}

// targets copies the subscribers interested in appID
func (h *Hub) targets(appID string) []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		if sub.wants(appID) {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Last returns the most recent event published for appID
func (h *Hub) Last(appID string) (types.Event, bool) {
	h.lastMu.Lock()
	defer h.lastMu.Unlock()
	evt, ok := h.last[appID]
	return evt, ok
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
