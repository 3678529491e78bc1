package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rajapam/broker/internal/core"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// Config captures runtime configuration for the tunnel service client.
type Config struct {
	// TokenURL is the form-encoded login endpoint.
	TokenURL string
	// StatusURL is the per-token status endpoint base; the token is appended
	// as a path segment.
	StatusURL string
	// InvalidateURL is the per-token invalidate endpoint base.
	InvalidateURL string
	Timeout       time.Duration
	Client        *http.Client
}

// Client talks to the standard-mode tunnel service.
type Client struct {
	tokenURL      string
	statusURL     string
	invalidateURL string
	client        *http.Client
}

// NewClient constructs a tunnel client from config.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, errors.New("tunnel token url is required")
	}
	if strings.TrimSpace(cfg.StatusURL) == "" {
		return nil, errors.New("tunnel status url is required")
	}
	if strings.TrimSpace(cfg.InvalidateURL) == "" {
		return nil, errors.New("tunnel invalidate url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		tokenURL:      strings.TrimRight(cfg.TokenURL, "/"),
		statusURL:     strings.TrimRight(cfg.StatusURL, "/"),
		invalidateURL: strings.TrimRight(cfg.InvalidateURL, "/"),
		client:        hc,
	}, nil
}

type loginResponse struct {
	AuthToken string `json:"authToken"`
	Message   string `json:"message,omitempty"`
}

// Login exchanges throwaway credentials for a bearer token. An answer without
// a token yields an empty string and no error; the caller owns the
// user-facing failure message.
func (c *Client) Login(ctx context.Context, creds core.TunnelCredentials) (string, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create tunnel login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tunnel login request failed: %w", err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Unreachablef("tunnel login returned status %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("decode tunnel login response: %w", err)
	}

	return login.AuthToken, nil
}

// Status polls the tunnel state for a token. 304 means "unchanged" and maps
// to a zero-value status so the tracker treats it as a no-op observation.
// Any other non-2xx answer is Unreachable and the caller fails closed.
func (c *Client) Status(ctx context.Context, token string) (*core.TunnelStatus, error) {
	if token == "" {
		return nil, errors.New("tunnel token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.statusURL+"/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, fmt.Errorf("create tunnel status request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "tunnel status request failed")
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusNotModified {
		return &core.TunnelStatus{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Unreachablef("tunnel status returned status %d", resp.StatusCode)
	}

	var status core.TunnelStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "decode tunnel status response")
	}

	return &status, nil
}

type invalidateResponse struct {
	OK bool `json:"ok"`
}

// Invalidate tears down the tunnel for a token and reports the service's ok
// acknowledgment.
func (c *Client) Invalidate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, errors.New("tunnel token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.invalidateURL+"/"+url.PathEscape(token), nil)
	if err != nil {
		return false, fmt.Errorf("create tunnel invalidate request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("tunnel invalidate request failed: %w", err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, apperrors.Unreachablef("tunnel invalidate returned status %d", resp.StatusCode)
	}

	var ack invalidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return false, fmt.Errorf("decode tunnel invalidate response: %w", err)
	}

	return ack.OK, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
