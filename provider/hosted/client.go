package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/contiq/contiq/session"
)

// Provider implements session.IdentityProvider against the hosted identity
// service. Each Provider instance holds the tokens for exactly one browser
// session; instances share nothing, so one handle per store is the expected
// usage.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  session.Logger
	bus     *session.Broadcaster

	mu      sync.Mutex
	account *session.Account
}

// New builds a provider handle from the config. Config validation failures
// are returned as-is; callers treat them as fatal.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}

	return &Provider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  cfg.httpClient(),
		logger:  logger,
		bus:     session.NewBroadcaster(),
	}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the service's session grant shape. Signup responses reuse
// it: the token fields are empty when email confirmation is still pending.
type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	RefreshToken string  `json:"refresh_token"`
	User         apiUser `json:"user"`
}

func (t tokenResponse) account(now time.Time) *session.Account {
	account := &session.Account{
		User: session.User{
			ID:    t.User.ID,
			Email: t.User.Email,
		},
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn != 0 {
		account.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return account
}

// GetSession returns the current session, refreshing it first when the
// access token has expired and a refresh token is on hand.
func (p *Provider) GetSession(ctx context.Context) (*session.Account, error) {
	p.mu.Lock()
	account := p.account
	p.mu.Unlock()

	if account == nil {
		return nil, nil
	}

	if account.Expired(time.Now()) {
		if account.RefreshToken == "" {
			p.setAccount(nil)
			return nil, nil
		}
		return p.refresh(ctx, account.RefreshToken)
	}

	snapshot := *account
	return &snapshot, nil
}

// SignInWithPassword exchanges credentials for a session grant and emits
// EventSignedIn on success.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) error {
	var grant tokenResponse
	status, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentials{
		Email:    email,
		Password: password,
	}, &grant)
	if err != nil {
		return p.mapFailure(status, err, false)
	}

	account := grant.account(time.Now())
	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

// SignUp registers a new account. When the service has email auto-confirm
// enabled the response carries a session grant and the sign-in event fires
// immediately; otherwise the account stays pending until the user confirms
// out of band and no event is emitted.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	var grant tokenResponse
	status, err := p.do(ctx, http.MethodPost, "/signup", "", credentials{
		Email:    email,
		Password: password,
	}, &grant)
	if err != nil {
		return p.mapFailure(status, err, true)
	}

	if grant.AccessToken == "" {
		return nil
	}

	account := grant.account(time.Now())
	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

// SignOut revokes the current session with the service and emits
// EventSignedOut. Without an active session it is a no-op. On failure the
// local session is left untouched.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	account := p.account
	p.mu.Unlock()

	if account == nil {
		return nil
	}

	status, err := p.do(ctx, http.MethodPost, "/logout", account.AccessToken, nil, nil)
	if err != nil && status != http.StatusUnauthorized {
		return p.mapFailure(status, err, false)
	}

	// A 401 means the service no longer recognizes the token; the session is
	// gone either way.
	p.setAccount(nil)
	p.bus.Emit(session.Event{Type: session.EventSignedOut})
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

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*session.Account, error) {
	var grant tokenResponse
	status, err := p.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &grant)
	if err != nil {
		if session.IsAuthKind(p.mapFailure(status, err, false), session.TextCodeNetwork) {
			return nil, session.ErrNetwork
		}
		// The refresh token was rejected; the session is over.
		p.logger.Info("session refresh rejected, dropping session", "status", status)
		p.setAccount(nil)
		p.bus.Emit(session.Event{Type: session.EventSignedOut})
		return nil, nil
	}

	account := grant.account(time.Now())
	p.setAccount(account)
	p.bus.Emit(session.Event{Type: session.EventTokenRefreshed, Account: account})

	snapshot := *account
	return &snapshot, nil
}

func (p *Provider) setAccount(account *session.Account) {
	p.mu.Lock()
	p.account = account
	p.mu.Unlock()
}

// apiError is a non-2xx response from the service.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("identity service responded %d: %s", e.Status, e.Message)
}

// errorBody covers the service's error shapes; which key carries the detail
// varies by endpoint.
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) detail() string {
	for _, msg := range []string{b.ErrorDescription, b.Msg, b.Message} {
		if msg != "" {
			return msg
		}
	}
	return ""
}

// do sends one request and decodes the response into out. It returns the
// HTTP status (0 when the request never completed) and an error for any
// non-2xx response or transport failure.
func (p *Provider) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, err
	}

	req.Header.Set("apikey", p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var errBody errorBody
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		_ = json.Unmarshal(raw, &errBody)
		return res.StatusCode, &apiError{Status: res.StatusCode, Message: errBody.detail()}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, err
		}
	}

	return res.StatusCode, nil
}

// mapFailure collapses every service failure shape into the closed AuthError
// taxonomy. This is the only place provider error detail is inspected; it is
// logged here and never propagated.
func (p *Provider) mapFailure(status int, err error, registration bool) error {
	apiErr, ok := err.(*apiError)
	if !ok {
		// The request never produced a response.
		p.logger.Warn("identity service unreachable", "error", err)
		return session.ErrNetwork
	}

	detail := strings.ToLower(apiErr.Message)
	p.logger.Debug("identity service rejection", "status", status, "detail", detail)

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(detail, "rate limit"):
		return session.ErrRateLimited
	case status >= 500:
		return session.ErrNetwork
	case registration && (strings.Contains(detail, "already registered") || strings.Contains(detail, "already exists")):
		return session.ErrDuplicateAccount
	case registration && status >= 400 && status < 500:
		return session.ErrRegistrationFailed
	case strings.Contains(detail, "invalid login credentials") || status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return session.ErrInvalidCredentials
	default:
		return session.ErrAuthUnknown
	}
}
