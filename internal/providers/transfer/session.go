package transfer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// session is the live state of one download. The controller owns the
// cancel func; Cancel only flips the flag and calls it.
type session struct {
	appID     string
	url       string
	started   time.Time
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// table holds at most one session per app id
type table struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newTable() *table {
	return &table{sessions: make(map[string]*session)}
}

// claim registers s unless a session for the same app id already exists
func (t *table) claim(s *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sessions[s.appID]; exists {
		return false
	}
	t.sessions[s.appID] = s
	return true
}

// release removes s if it is still the registered session for its app id
func (t *table) release(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.sessions[s.appID]; ok && cur == s {
		delete(t.sessions, s.appID)
	}
}

func (t *table) get(appID string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[appID]
	return s, ok
}
