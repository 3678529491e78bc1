package transparent

import (
	"bytes"
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
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// defaultPort is the transparent service's API port, appended when the
// configured address carries none.
const defaultPort = "3030"

// Config captures runtime configuration for the transparent service client.
type Config struct {
	// Settings resolves the service address (transparentIpAddress) at call
	// time; admins may repoint the service without a broker restart.
	Settings core.SettingsRepository
	Timeout  time.Duration
	Client   *http.Client
}

// Client talks to the transparent-mode proxy service.
type Client struct {
	settings core.SettingsRepository
	client   *http.Client
}

// NewClient constructs a transparent service client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Settings == nil {
		return nil, errors.New("settings repository is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{settings: cfg.Settings, client: hc}, nil
}

// baseURL resolves the transparent service address from settings.
// A missing address is PolicyDenied with the configuration message the
// dashboard understands.
func (c *Client) baseURL(ctx context.Context) (string, error) {
	addr, ok, err := c.settings.Lookup(ctx, model.SettingTransparentIPAddress)
	if err != nil {
		return "", fmt.Errorf("lookup transparent address: %w", err)
	}
	addr = strings.TrimSpace(addr)
	if !ok || addr == "" {
		return "", apperrors.PolicyDenied("Configure transparent mode requirements in the settings menu")
	}

	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid transparent address %q: %w", addr, err)
	}
	if parsed.Port() == "" {
		parsed.Host = parsed.Host + ":" + defaultPort
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

// CreateSession asks the transparent service to set up a delegated session
// and hand back the connection descriptor.
func (c *Client) CreateSession(
	ctx context.Context,
	req core.TransparentSessionRequest,
) (*core.TransparentSessionResult, error) {
	base, err := c.baseURL(ctx)
	if err != nil {
		return nil, err
	}

	var result core.TransparentSessionResult
	if err := c.postJSON(ctx, base+"/session/create", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type livenessResponse struct {
	Result string `json:"result"`
}

// Liveness returns the service's one-letter state for a session. Non-2xx
// answers and transport failures are Unreachable so the tracker fails closed.
func (c *Client) Liveness(ctx context.Context, sessionID string) (core.TransparentLiveness, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	base, err := c.baseURL(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/session/l/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return "", fmt.Errorf("create liveness request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "transparent liveness request failed")
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Unreachablef("transparent liveness returned status %d", resp.StatusCode)
	}

	var body livenessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "decode liveness response")
	}

	return core.TransparentLiveness(body.Result), nil
}

type terminateRequest struct {
	SessionID string `json:"sessionId"`
}

type terminateResponse struct {
	Result bool `json:"result"`
}

// Terminate asks the transparent service to tear down a session. Success is
// the remote result flag being set.
func (c *Client) Terminate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	base, err := c.baseURL(ctx)
	if err != nil {
		return err
	}

	var ack terminateResponse
	if err := c.postJSON(ctx, base+"/session/terminate-session",
		terminateRequest{SessionID: sessionID}, &ack); err != nil {
		return err
	}
	if !ack.Result {
		return errors.New("transparent terminate was not acknowledged")
	}
	return nil
}

// RequestVideoRendering asks the transparent service to render the session
// recording into video. Fire-and-forget from the broker's perspective.
func (c *Client) RequestVideoRendering(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	base, err := c.baseURL(ctx)
	if err != nil {
		return err
	}

	var ack terminateResponse
	return c.postJSON(ctx, base+"/session/request-video-rendering",
		terminateRequest{SessionID: sessionID}, &ack)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode transparent payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create transparent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "transparent request failed")
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Unreachablef("transparent service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode transparent response: %w", err)
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
