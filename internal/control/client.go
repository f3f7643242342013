package control

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
)

// ErrUnreachable reports that no agent answered at the client's address.
var ErrUnreachable = errors.New("agent unreachable")

// Client talks to a running agent's control server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for addr (host:port or a full URL).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Status fetches /v1/status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ToggleAutostart flips launch at login and returns the new value.
func (c *Client) ToggleAutostart(ctx context.Context) (bool, error) {
	var resp AutostartRequest
	if err := c.do(ctx, http.MethodPost, "/v1/autostart/toggle", nil, &resp); err != nil {
		return false, err
	}
	return resp.LaunchAtLogin, nil
}

// SetAutostart enables or disables launch at login.
func (c *Client) SetAutostart(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/v1/autostart", AutostartRequest{LaunchAtLogin: enabled}, nil)
}

// Quit asks the agent to shut down.
func (c *Client) Quit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/quit", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrUnreachable, c.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, body.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
