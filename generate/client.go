package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contiq/contiq/session"
	"github.com/doyensec/safeurl"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTimeout bounds the webhook round trip. Generation is slow; this is
// deliberately generous.
const DefaultTimeout = 60 * time.Second

// maxScriptSize caps how much of the webhook response is read.
const maxScriptSize = 1 << 20

// Client calls the external generation webhook. The default transport is
// SSRF-hardened: requests resolving to private, loopback, or link-local
// addresses are rejected at dial time.
type Client struct {
	webhookURL string
	client     *http.Client
	logger     session.Logger
}

// New builds a webhook client for the given URL.
func New(webhookURL string) (*Client, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, goerrors.New("generation webhook URL is required", goerrors.CategoryBadInput)
	}

	return &Client{
		webhookURL: webhookURL,
		client:     newSafeClient(DefaultTimeout),
		logger:     session.DefaultLogger(),
	}, nil
}

func (c *Client) WithLogger(logger session.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithHTTPClient overrides the outbound client. Tests use this to reach
// loopback servers the safe transport would refuse.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.client = client
	}
	return c
}

func newSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// GenerateScript posts the request to the webhook and returns the generated
// script text verbatim.
func (c *Client) GenerateScript(ctx context.Context, request ScriptRequest) (string, error) {
	if err := request.Validate(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid script request")
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode script request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("generation webhook unreachable", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "generation service unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("generation webhook rejected request", "status", res.StatusCode)
		return "", goerrors.New("generation service rejected the request", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode})
	}

	script, err := io.ReadAll(io.LimitReader(res.Body, maxScriptSize))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read generated script")
	}

	return string(script), nil
}
