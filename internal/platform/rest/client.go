// internal/platform/rest/client.go
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"collab-client/internal/common/auth"
	commonhttp "collab-client/internal/common/http"
)

// Client wraps the REST surface the realtime core consumes. It is not a
// general platform API client: only the endpoints the delivery layer needs.
type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	tokens     auth.TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens auth.TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: commonhttp.NewClient(timeout),
		tokens:     tokens,
	}
}

// ListRooms fetches the rooms available to the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.getJSON(ctx, "/chat/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListMessages fetches one backward page of room history. A zero `before`
// fetches the most recent page. Messages come back oldest-first.
func (c *Client) ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]Message, error) {
	query := url.Values{}
	if !before.IsZero() {
		query.Set("before", before.UTC().Format(time.RFC3339Nano))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var page HistoryPage
	path := fmt.Sprintf("/chat/rooms/%s/messages", url.PathEscape(roomID))
	if err := c.getJSON(ctx, path, query, &page); err != nil {
		return nil, err
	}
	return page.Messages, nil
}

// SendMessage persists a message server-side. The created message is NOT
// rendered locally from this response: the channel echo is the sole render
// path, so a disconnected channel delays visibility, not persistence.
func (c *Client) SendMessage(ctx context.Context, roomID, content string) (*Message, error) {
	path := fmt.Sprintf("/chat/rooms/%s/messages", url.PathEscape(roomID))
	var created Message
	if err := c.postJSON(ctx, path, sendMessageRequest{Content: content}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// NotificationsSnapshot fetches the authoritative notification state.
func (c *Client) NotificationsSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.getJSON(ctx, "/notifications-snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MarkRead marks the given notifications read server-side.
func (c *Client) MarkRead(ctx context.Context, ids []string) error {
	return c.postJSON(ctx, "/notifications/mark-read", markReadRequest{IDs: ids}, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doJSON(ctx, req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, out)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
