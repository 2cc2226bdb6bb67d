package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/chat-widget/internal/domain"
)

// ChatPath is the backend endpoint every turn is posted to
const ChatPath = "/api/widget/chat"

// FallbackMessage is shown to the visitor in place of a reply when a turn fails
const FallbackMessage = "Désolé, je rencontre un problème technique. Veuillez réessayer dans un instant."

// ErrTransport covers network failures, non-2xx statuses and malformed
// reply bodies. All of them are handled the same way.
var ErrTransport = errors.New("widget: chat transport failure")

const maxResponseBody = 1 << 20

// Transport sends one turn to the chat backend and returns the reply text
type Transport interface {
	Chat(ctx context.Context, req domain.ChatRequest) (string, error)
}

// Client is the HTTP Transport for the widget chat endpoint
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a chat client for apiBase. A zero timeout leaves the
// request bounded only by the caller's context.
func NewClient(apiBase string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(apiBase, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Chat posts req and returns the backend's reply text
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: backend returned status %d", ErrTransport, resp.StatusCode)
	}

	var out domain.ChatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrTransport, err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("%w: response field missing or empty", ErrTransport)
	}

	return out.Response, nil
}

// DelayPolicy is the artificial pause applied between a reply arriving and
// it being shown, sampled uniformly in [Min, Max).
type DelayPolicy struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelayPolicy is the 500ms to 1500ms reply cadence
var DefaultDelayPolicy = DelayPolicy{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}

// Sample draws one delay
func (p DelayPolicy) Sample() time.Duration {
	if p.Min < 0 {
		p.Min = 0
	}
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int63n(int64(p.Max-p.Min)))
}
