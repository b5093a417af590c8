package nav

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"roadrich/internal/cache"
	applog "roadrich/internal/log"
)

// Sessions holds the current State of every browser session. Entries are
// replaced wholesale after each transition and expire after ttl idle time.
type Sessions struct {
	mu     sync.Mutex // serialises transitions per store
	states *cache.LRUCache[State]
}

func NewSessions(maxSessions int, ttl time.Duration) *Sessions {
	return &Sessions{states: cache.NewLRUCache[State](maxSessions, ttl)}
}

// Cache exposes the backing cache so a cache.Manager can expire entries.
func (s *Sessions) Cache() *cache.LRUCache[State] {
	return s.states
}

// Create stores st under a new random session ID.
func (s *Sessions) Create(st State) string {
	id := uuid.NewString()
	s.states.Set(id, st)
	return id
}

// Get returns the stored state, or the initial state for an unknown or
// expired session.
func (s *Sessions) Get(id string) (State, bool) {
	st, ok := s.states.Get(id)
	if !ok {
		return Initial(), false
	}
	return st, true
}

// Put replaces the state of a session.
func (s *Sessions) Put(id string, st State) {
	s.states.Set(id, st)
}

// Dispatch applies ev to the session's state and stores the result.
// Rejected events leave the stored state untouched.
func (s *Sessions) Dispatch(ctx context.Context, id string, ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.Get(id)
	next, err := Transition(current, ev)
	if err != nil {
		slog.DebugContext(ctx, "Navigation rejected",
			applog.FieldComponent, applog.ComponentNav,
			"event", ev.Name(),
			applog.FieldScreen, current.Screen,
			"error", err)
		return next, err
	}
	s.states.Set(id, next)
	slog.DebugContext(ctx, "Navigation",
		applog.FieldComponent, applog.ComponentNav,
		"event", ev.Name(),
		"from", current.Screen,
		applog.FieldScreen, next.Screen)
	return next, nil
}

// Delete forgets a session.
func (s *Sessions) Delete(id string) {
	s.states.Delete(id)
}

func (s *Sessions) Len() int {
	return s.states.Size()
}
