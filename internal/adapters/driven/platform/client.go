package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Platform = (*Client)(nil)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds configuration for the platform client.
type Config struct {
	// BaseURL is the versioned API base (default: domain.DefaultAPIURL).
	BaseURL string

	// Timeout bounds non-streaming requests (default: domain.DefaultAPITimeout).
	Timeout time.Duration

	// RateLimit is the request budget per second. Zero disables throttling.
	RateLimit float64

	// Credentials supplies the bearer token. Required for authenticated routes.
	Credentials driven.CredentialProvider

	// Transport is the base round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper
}

// Client talks to the platform API.
type Client struct {
	baseURL string
	timeout time.Duration
	creds   driven.CredentialProvider
	limiter *rate.Limiter

	// authed adds the bearer token; anon is used for OTP routes and log streams.
	authed *http.Client
	anon   *http.Client
}

// New creates a platform client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultAPITimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		creds:   cfg.Credentials,
		anon:    &http.Client{Transport: base},
	}
	c.authed = &http.Client{
		Transport: &oauth2.Transport{
			Source: credentialTokenSource{creds: cfg.Credentials},
			Base:   base,
		},
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// credentialTokenSource adapts a CredentialProvider to oauth2.TokenSource.
// It is not cached, so a token saved by another process is used at once.
type credentialTokenSource struct {
	creds driven.CredentialProvider
}

// Token reads the current bearer token.
func (s credentialTokenSource) Token() (*oauth2.Token, error) {
	if s.creds == nil {
		return nil, domain.ErrAuthRequired
	}
	tok, err := s.creds.Token(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	anon   bool
	stream bool

	// token, when set, is sent instead of the provider's token.
	token string
}

// do sends a request and returns the response once a 2xx status arrived.
// For non-streaming requests the returned cancel func releases the timeout
// and must be called after the body is consumed.
func (c *Client) do(ctx context.Context, r request) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if !r.stream {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	client := c.authed
	switch {
	case r.token != "":
		req.Header.Set("Authorization", "Bearer "+r.token)
		client = c.anon
	case r.anon:
		client = c.anon
	}

	logger.Debug("%s %s", r.method, r.path)
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		defer cancel()
		return nil, nil, decodeError(resp)
	}
	return resp, cancel, nil
}

// call sends a request and decodes the JSON response into out.
// If envelope is set and the response is an object holding that key,
// the value under the key is decoded instead of the whole body.
func (c *Client) call(ctx context.Context, r request, envelope string, out any) error {
	resp, cancel, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := decodeEnvelope(data, envelope, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", r.method, r.path, domain.ErrUnexpectedResponse, err)
	}
	return nil
}

// decodeEnvelope decodes data[key] when present, otherwise data.
func decodeEnvelope(data []byte, key string, out any) error {
	if key != "" {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err == nil {
			if raw, ok := fields[key]; ok && string(raw) != "null" {
				return json.Unmarshal(raw, out)
			}
		}
	}
	return json.Unmarshal(data, out)
}

// decodeError maps a non-2xx response to a *domain.APIError.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{StatusCode: resp.StatusCode, Err: statusError(resp.StatusCode)}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 {
		apiErr.Message = text
	}
	logger.Debug("api error %d: %s", resp.StatusCode, apiErr.Message)
	return apiErr
}

// statusError returns the sentinel for an HTTP status.
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrAuthInvalid
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status >= 500:
		return domain.ErrServer
	case status >= 400:
		return domain.ErrInvalidInput
	default:
		return domain.ErrUnexpectedResponse
	}
}

// scoped prefixes path with the route family of scope.
func scoped(scope domain.Scope, path string) string {
	if scope == domain.ScopeAdmin {
		return "/admin" + path
	}
	return "/user" + path
}

// seg escapes one path segment.
func seg(s string) string {
	return url.PathEscape(s)
}
