package server

import (
	"context"
	"sync"

	"github.com/geosleuth/geocase/internal/game"
)

// LiveSession is the in-process handle for one running session: the
// per-session lock that serializes commands, and the case content cached
// at registration (cases are immutable once stored).
type LiveSession struct {
	ID string

	mu   sync.Mutex
	kase *game.Case
}

// Lock serializes commands against this session. Every mutation of session
// state happens between Lock and Unlock, including the broadcast of the
// resulting event, so clients observe changes in causal order.
func (ls *LiveSession) Lock()   { ls.mu.Lock() }
func (ls *LiveSession) Unlock() { ls.mu.Unlock() }

// Case returns the cached case content. Immutable; safe to read without
// the session lock.
func (ls *LiveSession) Case() *game.Case { return ls.kase }

// Registry tracks live sessions. Lookups hit an RLock fast path; a miss
// falls through to the store so sessions survive process restarts.
type Registry struct {
	store Store

	mu   sync.RWMutex
	live map[string]*LiveSession
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		live:  make(map[string]*LiveSession),
	}
}

// Get returns the live handle for a session, loading it from the store on
// first access. Two goroutines racing on a cold session settle on one
// handle under the write lock.
func (r *Registry) Get(ctx context.Context, sessionID string) (*LiveSession, error) {
	r.mu.RLock()
	ls, ok := r.live[sessionID]
	r.mu.RUnlock()
	if ok {
		return ls, nil
	}

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	kase, err := r.store.GetCase(ctx, sess.CaseID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.live[sessionID]; ok {
		return ls, nil
	}
	ls = &LiveSession{ID: sessionID, kase: kase}
	r.live[sessionID] = ls
	return ls, nil
}

// Register installs a handle for a freshly created session whose case is
// already in hand.
func (r *Registry) Register(sessionID string, kase *game.Case) *LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.live[sessionID]; ok {
		return ls
	}
	ls := &LiveSession{ID: sessionID, kase: kase}
	r.live[sessionID] = ls
	return ls
}

// Remove drops a session's handle, typically after completion.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, sessionID)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}
