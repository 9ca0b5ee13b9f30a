package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Store is the single source of truth for "is there a logged-in user". It
// owns the Session exclusively: state changes only when the initial provider
// query resolves or when the provider emits a session change event. SignIn,
// SignUp and SignOut are requests, not transitions; the store never claims
// authentication the provider has not confirmed.
type Store struct {
	provider IdentityProvider
	logger   Logger

	mu      sync.RWMutex
	user    *User
	loading bool

	watchMu  sync.Mutex
	watchSeq int
	watchers map[int]chan Session

	initOnce    sync.Once
	closeOnce   sync.Once
	closed      atomic.Bool
	unsubscribe func()
	loopDone    chan struct{}
	started     bool
}

// NewStore returns a store in the uninitialized state: no user, loading true.
func NewStore(provider IdentityProvider) *Store {
	return &Store{
		provider: provider,
		logger:   defLogger{},
		loading:  true,
		watchers: map[int]chan Session{},
		loopDone: make(chan struct{}),
	}
}

func (s *Store) WithLogger(logger Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Initialize queries the provider for an existing session and establishes the
// standing subscription to session change events. A provider failure here is
// treated as "no session": it is logged, never surfaced, and never leaves the
// store stuck loading. Subsequent calls are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	if s.closed.Load() {
		return
	}

	s.initOnce.Do(func() {
		account, err := s.provider.GetSession(ctx)
		if err != nil {
			s.logger.Warn("session restore failed, starting unauthenticated", "error", err)
			account = nil
		}

		events, unsubscribe := s.provider.Subscribe()

		s.mu.Lock()
		if s.closed.Load() {
			// Close won the race: drop the subscription, never start the loop.
			s.mu.Unlock()
			unsubscribe()
			return
		}
		s.unsubscribe = unsubscribe
		s.started = true
		if account != nil {
			u := account.User
			s.user = &u
		}
		s.loading = false
		s.mu.Unlock()

		go s.consume(events)
		s.notify()
	})
}

// SignIn requests a credential sign-in from the provider. It does not mutate
// local state; a successful attempt is observed through the provider's
// sign-in event. Email and password must be non-empty; trimming and format
// validation belong to the caller.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}
	return s.provider.SignInWithPassword(ctx, email, password)
}

// SignUp requests account registration. Registration may require email
// confirmation, so a nil error only means the request completed; the caller
// decides how to react (typically a "check your email" state). The session
// becomes active only if and when the provider emits a sign-in event.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}
	return s.provider.SignUp(ctx, email, password)
}

// SignOut requests session termination. On failure the local user is left
// unchanged: an unconfirmed sign-out must not desynchronize local state from
// the provider's view.
func (s *Store) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

// Snapshot returns a copy of the current session state. The returned value
// is the caller's to keep; mutating it has no effect on the store.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Session{Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// State returns the lifecycle state of the current snapshot.
func (s *Store) State() State {
	return s.Snapshot().State()
}

// Watch registers an observer for session changes. The channel carries the
// latest snapshot; intermediate snapshots may be coalesced, but the final
// state is always delivered. The returned function tears the observer down.
func (s *Store) Watch() (<-chan Session, func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	id := s.watchSeq
	s.watchSeq++

	ch := make(chan Session, 1)
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			if _, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(ch)
			}
		})
	}
}

// Wait blocks until the session satisfies pred or ctx is done. It observes
// the current snapshot first, so a predicate that already holds returns
// immediately.
func (s *Store) Wait(ctx context.Context, pred func(Session) bool) error {
	ch, cancel := s.Watch()
	defer cancel()

	if pred(s.Snapshot()) {
		return nil
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			if pred(snap) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears down the provider subscription and waits for the event loop to
// drain, guaranteeing no state change after it returns. Safe to call more
// than once, and before Initialize.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.mu.Lock()
		unsubscribe := s.unsubscribe
		started := s.started
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if started {
			<-s.loopDone
		}

		s.watchMu.Lock()
		for id, ch := range s.watchers {
			delete(s.watchers, id)
			close(ch)
		}
		s.watchMu.Unlock()
	})
}

// consume applies provider events one at a time, in delivery order. It is the
// only writer besides Initialize, so each event's snapshot is applied
// atomically before the next is handled.
func (s *Store) consume(events <-chan Event) {
	defer close(s.loopDone)

	for event := range events {
		s.apply(event)
	}
}

// apply never panics: a reactive handler has no caller to observe a failure,
// so malformed events are logged and dropped instead.
func (s *Store) apply(event Event) {
	var user *User

	switch event.Type {
	case EventSignedOut:
		user = nil
	case EventSignedIn, EventTokenRefreshed, EventUserUpdated:
		if event.Account == nil {
			s.logger.Error("provider emitted %s without an account, ignoring", string(event.Type))
			return
		}
		u := event.Account.User
		user = &u
	default:
		s.logger.Warn("ignoring unknown session event", "type", string(event.Type))
		return
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.notify()
}

func (s *Store) notify() {
	snap := s.Snapshot()

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, ch := range s.watchers {
		// Coalesce: replace a stale pending snapshot with the latest.
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
