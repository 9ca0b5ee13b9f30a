package hosted

import (
	"net/http"
	"strings"
	"time"

	"github.com/contiq/contiq/session"
	goerrors "github.com/goliatone/go-errors"
)

// Config configures the hosted identity provider client.
type Config struct {
	// BaseURL is the identity service root, e.g. "https://id.contiq.app".
	BaseURL string

	// APIKey is the publishable API key sent with every request.
	APIKey string

	// SigningSecret verifies access tokens issued by the service.
	SigningSecret string

	// Timeout bounds each request to the service.
	// Default: 10 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client (useful for tests).
	HTTPClient *http.Client

	// Logger receives provider diagnostics. Default: the session package
	// default logger.
	Logger session.Logger
}

// DefaultTimeout is the per-request timeout when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Validate checks the required fields. A provider cannot be built without a
// base URL and an API key; callers treat this as a fatal startup error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return goerrors.New("identity service base URL is required", goerrors.CategoryBadInput)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return goerrors.New("identity service API key is required", goerrors.CategoryBadInput)
	}
	return nil
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{Timeout: timeout}
}
