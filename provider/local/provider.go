package local

import (
	"context"
	"sync"
	"time"

	"github.com/contiq/contiq/session"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the number of failed attempts a user gets inside the
// cool-down window before sign-in is throttled.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate.
var CoolDownPeriod = 24 * time.Hour

// DefaultTokenTTL is how long self-issued access tokens live.
var DefaultTokenTTL = time.Hour

// Provider implements session.IdentityProvider against the local users
// table. Each Provider holds the session for exactly one browser session;
// the Store behind it is shared.
type Provider struct {
	store    *Store
	secret   []byte
	tokenTTL time.Duration
	issuer   string
	logger   session.Logger
	bus      *session.Broadcaster

	// autoConfirm makes SignUp behave like a provider with email
	// confirmation disabled: registration activates the session immediately.
	autoConfirm bool

	mu      sync.Mutex
	account *session.Account
}

func New(store *Store, signingSecret string) *Provider {
	return &Provider{
		store:    store,
		secret:   []byte(signingSecret),
		tokenTTL: DefaultTokenTTL,
		issuer:   "contiq-local",
		logger:   session.DefaultLogger(),
		bus:      session.NewBroadcaster(),
	}
}

func (p *Provider) WithLogger(logger session.Logger) *Provider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func (p *Provider) WithTokenTTL(ttl time.Duration) *Provider {
	if ttl > 0 {
		p.tokenTTL = ttl
	}
	return p
}

func (p *Provider) WithAutoConfirm(autoConfirm bool) *Provider {
	p.autoConfirm = autoConfirm
	return p
}

// GetSession returns the current session, nil once the access token expired.
func (p *Provider) GetSession(ctx context.Context) (*session.Account, error) {
	p.mu.Lock()
	account := p.account
	p.mu.Unlock()

	if account == nil {
		return nil, nil
	}

	if account.Expired(time.Now()) {
		p.setAccount(nil)
		p.bus.Emit(session.Event{Type: session.EventSignedOut})
		return nil, nil
	}

	snapshot := *account
	return &snapshot, nil
}

// SignInWithPassword verifies credentials against the users table and emits
// EventSignedIn on success. Failed attempts accumulate toward the throttle.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) error {
	user, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return session.ErrInvalidCredentials
		}
		p.logger.Error("failed to load user during sign-in", "error", err)
		return session.ErrAuthUnknown
	}

	if !user.EmailValidated {
		p.logger.Debug("sign-in rejected for unconfirmed email", "user", user.ID)
		return session.ErrInvalidCredentials
	}

	if user.LoginAttemptAt != nil && time.Since(*user.LoginAttemptAt) > CoolDownPeriod {
		user.LoginAttempts = 0
	}

	if user.LoginAttempts >= MaxLoginAttempts {
		return session.ErrRateLimited
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if trackErr := p.store.TrackAttemptedLogin(ctx, user); trackErr != nil {
			p.logger.Error("failed to track login attempt", "error", trackErr)
		}
		return session.ErrInvalidCredentials
	}

	if err := p.store.TrackSuccessfulLogin(ctx, user); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	account, err := p.mintAccount(user)
	if err != nil {
		p.logger.Error("failed to mint access token", "error", err)
		return session.ErrAuthUnknown
	}

	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

// SignUp registers a new account. Without auto-confirm the account is
// created pending verification and no session starts.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return session.ErrRegistrationFailed
	}

	user, err := p.store.Register(ctx, &User{
		Email:          email,
		PasswordHash:   hash,
		EmailValidated: p.autoConfirm,
	})
	if err != nil {
		if goerrors.Is(err, ErrEmailTaken) {
			return session.ErrDuplicateAccount
		}
		p.logger.Error("failed to register user", "error", err)
		return session.ErrRegistrationFailed
	}

	if !p.autoConfirm {
		return nil
	}

	account, err := p.mintAccount(user)
	if err != nil {
		p.logger.Error("failed to mint access token", "error", err)
		return session.ErrRegistrationFailed
	}

	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

// SignOut drops the local session and emits EventSignedOut. Without an
// active session it is a no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	active := p.account != nil
	p.account = nil
	p.mu.Unlock()

	if active {
		p.bus.Emit(session.Event{Type: session.EventSignedOut})
	}
	return nil
}

// Subscribe implements session.IdentityProvider.
func (p *Provider) Subscribe() (<-chan session.Event, func()) {
	return p.bus.Subscribe()
}

// Close tears down all event subscriptions.
func (p *Provider) Close() {
	p.bus.Close()
}

func (p *Provider) setAccount(account *session.Account) {
	p.mu.Lock()
	p.account = account
	p.mu.Unlock()
}

func (p *Provider) mintAccount(user *User) (*session.Account, error) {
	now := time.Now()
	expiresAt := now.Add(p.tokenTTL)

	claims := jwt.MapClaims{
		"iss":   p.issuer,
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	return &session.Account{
		User: session.User{
			ID:    user.ID.String(),
			Email: user.Email,
		},
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}
