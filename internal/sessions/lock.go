package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrLockTimeout is returned when lock acquisition exceeds its timeout.
var ErrLockTimeout = errors.New("sessions: lock acquisition timeout")

// DefaultLockTimeout bounds lock acquisition when no timeout is given.
const DefaultLockTimeout = 30 * time.Second

// Lock is a held session lock. Release is idempotent and bound to the
// (sessionID, runID) pair that acquired it.
type Lock struct {
	manager   *LockManager
	sessionID string
	runID     string
	once      sync.Once
}

// SessionID returns the locked session.
func (l *Lock) SessionID() string { return l.sessionID }

// Release releases the lock. Only the first call has effect.
func (l *Lock) Release() {
	l.once.Do(func() {
		l.manager.release(l.sessionID, l.runID)
	})
}

type waiter struct {
	runID    string
	deadline time.Time
	grant    chan error
	timer    *time.Timer
	done     bool // guarded by the manager mutex
}

type lockState struct {
	holder     string
	acquiredAt time.Time
	waiters    []*waiter
}

// LockManager provides per-session mutual exclusion with FIFO waiters.
//
// At most one run holds a session's lock at a time. Waiters are granted in
// acquisition order; a waiter whose deadline elapses is removed from the
// list and fails with ErrLockTimeout without disturbing the others.
//
// Thread Safety: LockManager is safe for concurrent use.
type LockManager struct {
	mu     sync.Mutex
	locks  map[string]*lockState
	logger *slog.Logger
}

// NewLockManager creates a session lock manager.
func NewLockManager(logger *slog.Logger) *LockManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockManager{
		locks:  make(map[string]*lockState),
		logger: logger.With("component", "session_locks"),
	}
}

// Acquire obtains the session lock for runID, waiting up to timeout behind
// earlier waiters. The context aborts the wait early.
func (m *LockManager) Acquire(ctx context.Context, sessionID, runID string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	m.mu.Lock()
	state := m.locks[sessionID]
	if state == nil {
		state = &lockState{}
		m.locks[sessionID] = state
	}

	if state.holder == "" && len(state.waiters) == 0 {
		state.holder = runID
		state.acquiredAt = time.Now()
		m.mu.Unlock()
		return &Lock{manager: m, sessionID: sessionID, runID: runID}, nil
	}

	w := &waiter{
		runID:    runID,
		deadline: time.Now().Add(timeout),
		grant:    make(chan error, 1),
	}
	w.timer = time.AfterFunc(timeout, func() {
		m.expireWaiter(sessionID, w)
	})
	state.waiters = append(state.waiters, w)
	m.mu.Unlock()

	select {
	case err := <-w.grant:
		if err != nil {
			return nil, err
		}
		return &Lock{manager: m, sessionID: sessionID, runID: runID}, nil
	case <-ctx.Done():
		m.abandonWaiter(sessionID, w)
		// The grant may have raced the context; honor it if so.
		select {
		case err := <-w.grant:
			if err == nil {
				return &Lock{manager: m, sessionID: sessionID, runID: runID}, nil
			}
		default:
		}
		return nil, ctx.Err()
	}
}

// release hands the lock to the next live waiter. Non-holder release is a
// no-op.
func (m *LockManager) release(sessionID, runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.locks[sessionID]
	if state == nil || state.holder != runID {
		return
	}
	m.grantNextLocked(sessionID, state)
}

// ForceRelease releases the session lock regardless of holder and grants
// the next waiter. Intended for operational recovery.
func (m *LockManager) ForceRelease(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.locks[sessionID]
	if state == nil || state.holder == "" {
		return
	}
	m.logger.Warn("force releasing session lock",
		"session_id", sessionID,
		"holder", state.holder)
	m.grantNextLocked(sessionID, state)
}

func (m *LockManager) grantNextLocked(sessionID string, state *lockState) {
	state.holder = ""
	now := time.Now()
	for len(state.waiters) > 0 {
		w := state.waiters[0]
		state.waiters = state.waiters[1:]
		if w.done {
			continue
		}
		w.done = true
		w.timer.Stop()
		if now.After(w.deadline) {
			w.grant <- ErrLockTimeout
			continue
		}
		state.holder = w.runID
		state.acquiredAt = now
		w.grant <- nil
		return
	}
	if state.holder == "" && len(state.waiters) == 0 {
		delete(m.locks, sessionID)
	}
}

// expireWaiter fires from the waiter's timer: remove it and reject the
// acquisition.
func (m *LockManager) expireWaiter(sessionID string, w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.done {
		return
	}
	w.done = true
	m.removeWaiterLocked(sessionID, w)
	w.grant <- ErrLockTimeout
}

// abandonWaiter removes a waiter whose context was cancelled.
func (m *LockManager) abandonWaiter(sessionID string, w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.done {
		return
	}
	w.done = true
	w.timer.Stop()
	m.removeWaiterLocked(sessionID, w)
}

func (m *LockManager) removeWaiterLocked(sessionID string, w *waiter) {
	state := m.locks[sessionID]
	if state == nil {
		return
	}
	for i, candidate := range state.waiters {
		if candidate == w {
			state.waiters = append(state.waiters[:i], state.waiters[i+1:]...)
			break
		}
	}
	if state.holder == "" && len(state.waiters) == 0 {
		delete(m.locks, sessionID)
	}
}

// Holder returns the current holder of the session lock, if any.
func (m *LockManager) Holder(sessionID string) (runID string, since time.Time, held bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.locks[sessionID]
	if state == nil || state.holder == "" {
		return "", time.Time{}, false
	}
	return state.holder, state.acquiredAt, true
}

// WaiterCount returns the number of runs waiting on the session lock.
func (m *LockManager) WaiterCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.locks[sessionID]
	if state == nil {
		return 0
	}
	n := 0
	for _, w := range state.waiters {
		if !w.done {
			n++
		}
	}
	return n
}
