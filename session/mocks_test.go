package session_test

import (
	"context"
	"sync"
	"time"

	"github.com/contiq/contiq/session"
)

// fakeProvider implements session.IdentityProvider with scripted behavior.
// It emits events through a real Broadcaster so tests exercise the same
// delivery path as the production providers.
type fakeProvider struct {
	mu  sync.Mutex
	bus *session.Broadcaster

	account       *session.Account
	getSessionErr error
	signInErr     error
	signUpErr     error
	signOutErr    error

	// signUpConfirms, when true, makes SignUp behave like a provider with
	// email auto-confirm enabled: it activates the session immediately.
	signUpConfirms bool

	signInCalls  int
	signUpCalls  int
	signOutCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{bus: session.NewBroadcaster()}
}

func (p *fakeProvider) setAccount(account *session.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = account
}

func (p *fakeProvider) GetSession(ctx context.Context) (*session.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getSessionErr != nil {
		return nil, p.getSessionErr
	}
	return p.account, nil
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) error {
	p.mu.Lock()
	p.signInCalls++
	err := p.signInErr
	p.mu.Unlock()

	if err != nil {
		return err
	}

	account := testAccount(email)
	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) error {
	p.mu.Lock()
	p.signUpCalls++
	err := p.signUpErr
	confirms := p.signUpConfirms
	p.mu.Unlock()

	if err != nil {
		return err
	}

	if confirms {
		account := testAccount(email)
		p.setAccount(account)
		p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	}
	return nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	err := p.signOutErr
	p.mu.Unlock()

	if err != nil {
		return err
	}

	p.setAccount(nil)
	p.bus.Emit(session.Event{Type: session.EventSignedOut})
	return nil
}

func (p *fakeProvider) Subscribe() (<-chan session.Event, func()) {
	return p.bus.Subscribe()
}

func testAccount(email string) *session.Account {
	return &session.Account{
		User: session.User{
			ID:    "usr-" + email,
			Email: email,
		},
		AccessToken: "token-" + email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}
