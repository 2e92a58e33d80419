package orders

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tienda.app/internal/apierr"
	"tienda.app/internal/obs"
	"tienda.app/internal/session"
)

// API is the orders backend collaborator.
type API interface {
	List(ctx context.Context, f Filters) ([]Order, error)
	Get(ctx context.Context, id string) (Detail, error)
	SetStatus(ctx context.Context, id string, status Status) (bool, error)
	Reorder(ctx context.Context, id string) (ReorderResult, error)
}

// Sessions is the slice of the session manager the cache depends on: user
// presence, the presence signal, and forced logout on expired sessions.
type Sessions interface {
	Authenticated() bool
	Logout(ctx context.Context)
	Subscribe(ctx context.Context) <-chan session.Event
}

// Snapshot is a read-only copy of the cache state handed to consumers.
type Snapshot struct {
	Items      []Order
	Loading    bool
	Refreshing bool
	LastError  string
}

// Cache owns the in-memory order list for the current session: full-list
// fetch and refresh, per-item detail, cancel and reorder actions, and
// classified error state. Single source of truth; mutation only through its
// methods.
type Cache struct {
	mu         sync.RWMutex
	items      []Order
	loading    bool
	refreshing bool
	lastError  string

	// gen invalidates in-flight list responses: a response whose generation
	// no longer matches is dropped instead of overwriting newer state.
	gen uint64

	api      API
	sessions Sessions
	limiter  *rate.Limiter
	now      func() time.Time
}

// Option configures Cache behavior.
type Option func(*Cache)

// WithRefreshLimit bounds how often pull-to-refresh hits the backend.
func WithRefreshLimit(limit rate.Limit, burst int) Option {
	return func(c *Cache) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Cache) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCache constructs an empty cache bound to its collaborators.
func NewCache(api API, sessions Sessions, opts ...Option) *Cache {
	c := &Cache{
		api:      api,
		sessions: sessions,
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Watch subscribes to the session manager's user-presence signal. Session
// loss is an authoritative clear command; a fresh sign-in triggers the
// initial fetch. Runs until ctx ends.
func (c *Cache) Watch(ctx context.Context) {
	ch := c.sessions.Subscribe(ctx)
	go func() {
		for evt := range ch {
			switch evt.Type {
			case session.EventSignedOut:
				c.clear()
			case session.EventSignedIn:
				if err := c.FetchAll(ctx); err != nil {
					obs.LogEvent(map[string]any{
						"ts":    c.now().UTC().Format(time.RFC3339),
						"level": "warn",
						"msg":   "initial order fetch failed",
						"error": err.Error(),
					})
				}
			}
		}
	}()
}

// Snapshot returns a read-only copy of the cached list and flags.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Loading:    c.loading,
		Refreshing: c.refreshing,
		LastError:  c.lastError,
	}
	if c.items != nil {
		snap.Items = make([]Order, len(c.items))
		copy(snap.Items, c.items)
	}
	return snap
}

// Orders returns a copy of the cached list.
func (c *Cache) Orders() []Order { return c.Snapshot().Items }

// LastError returns the classified message of the most recent failure, empty
// when the last operation succeeded.
func (c *Cache) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Loading reports whether a first-load fetch is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Refreshing reports whether a pull-to-refresh fetch is in flight.
func (c *Cache) Refreshing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshing
}

// FetchAll replaces the entire cached list from the backend. Without a
// session it is a no-op that leaves the list empty and clears any error. On
// failure the previous list stays visible (stale-but-available).
func (c *Cache) FetchAll(ctx context.Context) error {
	return c.fetch(ctx, false)
}

// Refresh has the FetchAll contract but flags Refreshing instead of Loading
// so the UI can tell first-load spinners from pull-to-refresh indicators.
// Throttled; a skipped refresh is not an error.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.limiter.Allow() {
		return nil
	}
	return c.fetch(ctx, true)
}

func (c *Cache) fetch(ctx context.Context, refreshing bool) error {
	op := "fetch_all"
	if refreshing {
		op = "refresh"
	}
	start := c.now()

	if !c.sessions.Authenticated() {
		c.clear()
		return nil
	}

	c.mu.Lock()
	c.gen++
	myGen := c.gen
	if refreshing {
		c.refreshing = true
	} else {
		c.loading = true
	}
	c.mu.Unlock()

	list, err := c.api.List(ctx, Filters{})

	c.mu.Lock()
	stale := c.gen != myGen
	if !stale {
		if refreshing {
			c.refreshing = false
		} else {
			c.loading = false
		}
		if err == nil {
			// Full replace, never merge: the backend is authoritative.
			c.items = list
			c.lastError = ""
		} else {
			c.lastError = apierr.Message(err)
		}
	}
	c.mu.Unlock()

	if stale {
		return nil
	}
	obs.ObserveOperation(op, start, err)
	if err != nil {
		c.handleUnauthorized(ctx, err)
		return err
	}
	return nil
}

// GetByID always fetches fresh detail from the network; the detail screen
// trusts the network over the possibly stale list. When the detail endpoint
// has no representation, falls back to projecting the cached list entry.
func (c *Cache) GetByID(ctx context.Context, id string) (Detail, error) {
	start := c.now()
	d, err := c.api.Get(ctx, id)
	if err == nil {
		obs.ObserveOperation("get_by_id", start, nil)
		return d, nil
	}

	if apierr.IsKind(err, apierr.KindNotFound) {
		c.mu.RLock()
		for _, o := range c.items {
			if o.ID == id {
				c.mu.RUnlock()
				obs.ObserveOperation("get_by_id", start, nil)
				return DetailFromOrder(o), nil
			}
		}
		c.mu.RUnlock()
	}

	c.mu.Lock()
	c.lastError = apierr.Message(err)
	c.mu.Unlock()
	obs.ObserveOperation("get_by_id", start, err)
	c.handleUnauthorized(ctx, err)
	return Detail{}, err
}

// Cancel requests the cancelled transition. The backend decides whether the
// current status permits it. On success the list is resynchronized with an
// immediate FetchAll rather than mutated locally.
func (c *Cache) Cancel(ctx context.Context, id string) error {
	start := c.now()
	_, err := c.api.SetStatus(ctx, id, StatusCancelled)
	obs.ObserveOperation("cancel", start, err)
	if err != nil {
		c.mu.Lock()
		c.lastError = apierr.Message(err)
		c.mu.Unlock()
		c.handleUnauthorized(ctx, err)
		return err
	}
	if err := c.FetchAll(ctx); err != nil {
		obs.LogEvent(map[string]any{
			"ts":    c.now().UTC().Format(time.RFC3339),
			"level": "warn",
			"msg":   "resync after cancel failed",
			"error": err.Error(),
		})
	}
	return nil
}

// Reorder asks the backend to copy all line items of the order into a new
// one. Purely backend-delegated; the client does not replay items itself.
func (c *Cache) Reorder(ctx context.Context, id string) (ReorderResult, error) {
	start := c.now()
	res, err := c.api.Reorder(ctx, id)
	obs.ObserveOperation("reorder", start, err)
	if err != nil {
		c.mu.Lock()
		c.lastError = apierr.Message(err)
		c.mu.Unlock()
		c.handleUnauthorized(ctx, err)
		return ReorderResult{}, err
	}
	return res, nil
}

// Search passes history filters through to the backend untouched without
// disturbing the cached list.
func (c *Cache) Search(ctx context.Context, f Filters) ([]Order, error) {
	if !c.sessions.Authenticated() {
		return nil, session.ErrNoSession
	}
	start := c.now()
	list, err := c.api.List(ctx, f)
	obs.ObserveOperation("search", start, err)
	if err != nil {
		c.handleUnauthorized(ctx, err)
		return nil, err
	}
	return list, nil
}

// handleUnauthorized enforces the single 401 policy: an expired session
// always forces logout, which in turn clears this cache via Watch.
func (c *Cache) handleUnauthorized(ctx context.Context, err error) {
	if apierr.IsKind(err, apierr.KindUnauthorized) {
		c.sessions.Logout(ctx)
	}
}

// clear resets to the empty no-session state and invalidates in-flight
// responses.
func (c *Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
	c.loading = false
	c.refreshing = false
	c.lastError = ""
}
