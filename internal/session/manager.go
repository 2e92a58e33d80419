package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tienda.app/internal/obs"
	"tienda.app/internal/secstore"
)

// AuthAPI is the authentication collaborator. Login returns the user profile
// together with an opaque token the client never inspects.
type AuthAPI interface {
	Login(ctx context.Context, documentType, documentNumber, password string) (User, string, error)
}

// Manager owns the single authenticated-session slot: login/logout
// transitions, persisted-session restore at startup and the user-presence
// signal other providers subscribe to.
type Manager struct {
	mu        sync.RWMutex
	state     State
	user      *User
	token     string
	loading   bool
	lastError string

	store secstore.Store
	api   AuthAPI
	now   func() time.Time

	subMu sync.Mutex
	subs  map[int]chan Event
	next  int
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs the session manager in the Initializing state.
// Restore must be called before the route guard consults Loading.
func NewManager(store secstore.Store, api AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		state:   StateInitializing,
		loading: true,
		store:   store,
		api:     api,
		now:     time.Now,
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a read-only copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Token:     m.token,
		State:     m.state,
		Loading:   m.loading,
		LastError: m.lastError,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Authenticated reports whether a user is currently present.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Loading reports whether the initial restore or a login is in flight. The
// route guard waits on this before deciding where to send the user.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Token returns the opaque bearer token, empty when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Restore reads the persisted session blob. Any read or parse failure is
// treated as "no session": the manager fails open to Unauthenticated, never
// to a corrupt authenticated state.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	blob, err := m.store.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, secstore.ErrNotFound) {
			obs.LogEvent(map[string]any{
				"ts":    m.now().UTC().Format(time.RFC3339),
				"level": "warn",
				"msg":   "session restore read failed",
				"error": err.Error(),
			})
		}
		m.becomeUnauthenticated()
		return
	}

	var p persisted
	if err := json.Unmarshal([]byte(blob), &p); err != nil || p.User == nil || p.Token == "" {
		obs.LogEvent(map[string]any{
			"ts":    m.now().UTC().Format(time.RFC3339),
			"level": "warn",
			"msg":   "session restore discarded invalid blob",
		})
		m.becomeUnauthenticated()
		return
	}

	m.mu.Lock()
	m.user = p.User
	m.token = p.Token
	m.state = StateAuthenticated
	m.loading = false
	m.lastError = ""
	user := *p.User
	m.mu.Unlock()

	m.publish(Event{Type: EventSignedIn, User: &user})
}

func (m *Manager) becomeUnauthenticated() {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.state = StateUnauthenticated
	m.loading = false
	m.mu.Unlock()
	m.publish(Event{Type: EventSignedOut})
}

// Login authenticates against the Auth API and, on success, atomically
// replaces the session slot and persists it. On failure the previous state
// is untouched and LastError carries the classified user-facing message.
func (m *Manager) Login(ctx context.Context, documentType, documentNumber, password string) (Snapshot, error) {
	start := m.now()
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	user, token, err := m.api.Login(ctx, documentType, documentNumber, password)
	if err != nil {
		m.mu.Lock()
		m.loading = false
		m.lastError = userMessage(err)
		snap := m.snapshotLocked()
		m.mu.Unlock()
		obs.ObserveOperation("login", start, err)
		return snap, err
	}

	m.mu.Lock()
	u := user
	m.user = &u
	m.token = token
	m.state = StateAuthenticated
	m.loading = false
	m.lastError = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	// Persist the blob; the login still resolves with the in-memory session
	// even when the write fails.
	if blob, err := json.Marshal(persisted{User: &u, Token: token}); err == nil {
		if err := m.store.Set(StorageKey, string(blob)); err != nil {
			obs.LogEvent(map[string]any{
				"ts":    m.now().UTC().Format(time.RFC3339),
				"level": "error",
				"msg":   "session persist failed",
				"error": err.Error(),
			})
		}
	}

	m.publish(Event{Type: EventSignedIn, User: snap.User})
	obs.ObserveOperation("login", start, nil)
	return snap, nil
}

// Logout clears the in-memory session unconditionally first, then attempts
// to clear persisted storage. A storage failure is logged and swallowed so
// logout never fails from the user's perspective.
func (m *Manager) Logout(ctx context.Context) {
	start := m.now()
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.state = StateUnauthenticated
	m.loading = false
	m.lastError = ""
	m.mu.Unlock()

	m.publish(Event{Type: EventSignedOut})

	if err := m.store.Delete(StorageKey); err != nil {
		obs.LogEvent(map[string]any{
			"ts":    m.now().UTC().Format(time.RFC3339),
			"level": "warn",
			"msg":   "session storage delete failed",
			"error": err.Error(),
		})
	}
	obs.ObserveOperation("logout", start, nil)
}

// Subscribe registers a user-presence subscriber. The channel is closed when
// the provided context ends.
func (m *Manager) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	m.subMu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, id)
		close(ch)
		m.subMu.Unlock()
	}()

	return ch
}

func (m *Manager) publish(evt Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// snapshotLocked assumes m.mu is held.
func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:     m.token,
		State:     m.state,
		Loading:   m.loading,
		LastError: m.lastError,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// userMessage extracts a classified user-facing message without importing
// the API client layer.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Ocurrió un error inesperado. Intenta de nuevo."
}
