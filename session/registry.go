package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProviderFactory builds a fresh, independent identity provider handle for a
// single store. Handles share transport but not session state.
type ProviderFactory func() IdentityProvider

// Registry owns one Store per browser session, keyed by an opaque session ID
// carried in a cookie. Each store runs its own lifecycle against its own
// provider handle; evicting an idle entry closes the store, which tears down
// its provider subscription.
type Registry struct {
	factory ProviderFactory
	ttl     time.Duration
	logger  Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry

	stopOnce sync.Once
	stop     chan struct{}
}

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// DefaultSessionTTL is how long an idle browser session survives between
// requests before its store is evicted.
var DefaultSessionTTL = 24 * time.Hour

const sweepInterval = 5 * time.Minute

func NewRegistry(factory ProviderFactory) *Registry {
	r := &Registry{
		factory: factory,
		ttl:     DefaultSessionTTL,
		logger:  defLogger{},
		now:     time.Now,
		entries: map[string]*registryEntry{},
		stop:    make(chan struct{}),
	}

	go r.sweep()

	return r
}

func (r *Registry) WithLogger(logger Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *Registry) WithTTL(ttl time.Duration) *Registry {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

// WithClock injects a custom clock (useful for tests).
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	if clock != nil {
		r.now = clock
	}
	return r
}

// Create builds and initializes a new store, returning its session ID.
func (r *Registry) Create(ctx context.Context) (string, *Store) {
	store := NewStore(r.factory()).WithLogger(r.logger)
	store.Initialize(ctx)

	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = &registryEntry{store: store, lastSeen: r.now()}
	r.mu.Unlock()

	return id, store
}

// Get returns the store for the given session ID and refreshes its idle
// timer. Unknown or evicted IDs return false.
func (r *Registry) Get(id string) (*Store, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.store, true
}

// Destroy closes the store for the given session ID and forgets it. Unknown
// IDs are a no-op.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		entry.store.Close()
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle closes and removes every store idle longer than the TTL. The
// background sweeper calls this periodically; tests call it directly.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var victims []*registryEntry
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			victims = append(victims, entry)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range victims {
		entry.store.Close()
	}

	if len(victims) > 0 {
		r.logger.Debug("evicted idle sessions", "count", len(victims))
	}

	return len(victims)
}

// Close stops the sweeper and closes every remaining store.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)

		r.mu.Lock()
		entries := make([]*registryEntry, 0, len(r.entries))
		for id, entry := range r.entries {
			entries = append(entries, entry)
			delete(r.entries, id)
		}
		r.mu.Unlock()

		for _, entry := range entries {
			entry.store.Close()
		}
	})
}

func (r *Registry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-r.stop:
			return
		}
	}
}
