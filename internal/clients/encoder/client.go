package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rajapam/broker/internal/core"
)

// Config captures runtime configuration for the encoding microservices.
type Config struct {
	// EncodeURL is the recording encoder base URL.
	EncodeURL string
	// OCRURL is the OCR service base URL. Optional; OCR tasks fail when unset.
	OCRURL string
	// WebhookURL is handed to the services so they can report completion.
	WebhookURL string
	Timeout    time.Duration
	Client     *http.Client
}

// Client submits encode tasks to the recording encoder and OCR services.
type Client struct {
	encodeURL  string
	ocrURL     string
	webhookURL string
	client     *http.Client
}

// NewClient constructs an encoder client from config.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.EncodeURL) == "" {
		return nil, errors.New("encoder url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		encodeURL:  strings.TrimRight(cfg.EncodeURL, "/"),
		ocrURL:     strings.TrimRight(cfg.OCRURL, "/"),
		webhookURL: cfg.WebhookURL,
		client:     hc,
	}, nil
}

// encodeRequest is the encoder service's task envelope. The keystroke task is
// named "log" on the wire for historical reasons.
type encodeRequest struct {
	Task      string `json:"task"`
	SessionID string `json:"sessionId"`
	Webhook   string `json:"webhook,omitempty"`
}

type ocrRequest struct {
	SessionID string `json:"sessionId"`
	Webhook   string `json:"webhook,omitempty"`
}

// Encode submits one task to the matching service.
func (c *Client) Encode(ctx context.Context, task core.EncodeTask) error {
	if task.SessionID == "" {
		return errors.New("session id is required")
	}

	switch task.Kind {
	case core.EncodeKeystrokes:
		return c.postJSON(ctx, c.encodeURL+"/encode", encodeRequest{
			Task:      "log",
			SessionID: task.SessionID,
			Webhook:   c.webhookURL,
		})
	case core.EncodeOCR:
		if c.ocrURL == "" {
			return errors.New("ocr service url is not configured")
		}
		return c.postJSON(ctx, c.ocrURL+"/ocr", ocrRequest{
			SessionID: task.SessionID,
			Webhook:   c.webhookURL,
		})
	default:
		return fmt.Errorf("unknown encode kind %q", task.Kind)
	}
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create encoder request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("encoder request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("encoder service returned status %d", resp.StatusCode)
	}
	return nil
}
