// Package client talks to a running mapserver: it submits generation jobs
// through the admin API, follows their progress over the event websocket and
// fetches the finished previews.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/talgya/zoneforge/internal/api"
)

// Client is a mapserver API client.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL with admin auth.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name         string                `json:"name"`
	Uptime       string                `json:"uptime"`
	Jobs         map[api.JobStatus]int `json:"jobs"`
	ArchivedMaps int                   `json:"archived_maps"`
}

// SubmitRequest mirrors the body of POST /api/v1/maps.
type SubmitRequest struct {
	Template     json.RawMessage `json:"template,omitempty"`
	TemplateName string          `json:"template_name,omitempty"`
	Size         int             `json:"size"`
	Seed         int64           `json:"seed,omitempty"`
}

// Status fetches the server status.
func (c *Client) Status() (*Status, error) {
	var st Status
	if err := c.getJSON("/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Submit queues a generation job.
func (c *Client) Submit(req SubmitRequest) (*api.JobView, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/v1/maps", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.AdminKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("POST maps: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("submit failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var view api.JobView
	if err := json.Unmarshal(respBody, &view); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &view, nil
}

// Watch follows a job's events until it finishes and returns the last one.
// onEvent, if set, sees every event including the replayed backlog.
func (c *Client) Watch(ctx context.Context, id string, onEvent func(api.JobEvent)) (api.JobEvent, error) {
	url := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/api/v1/maps/" + id + "/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return api.JobEvent{}, fmt.Errorf("dial events: %w", err)
	}
	defer conn.CloseNow()

	var last api.JobEvent
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && last.Status.Finished() {
				return last, nil
			}
			return last, fmt.Errorf("read events: %w", err)
		}
		if err := json.Unmarshal(data, &last); err != nil {
			return last, fmt.Errorf("decode event: %w", err)
		}
		if onEvent != nil {
			onEvent(last)
		}
	}
}

// Preview fetches the ASCII rendering of a finished map.
func (c *Client) Preview(id string) (string, error) {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/api/v1/maps/" + id + "/preview")
	if err != nil {
		return "", fmt.Errorf("GET preview: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read preview: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("preview failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// WaitReady polls the status endpoint with exponential backoff until the
// server responds or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	backoff := 250 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		if _, err := c.Status(); err == nil {
			return nil
		}
		slog.Info("mapserver not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("mapserver not ready: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) getJSON(path string, v any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s (%d): %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
