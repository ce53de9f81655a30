// Package api is the HTTP client for the poco daemon's REST surface.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/libreassistant/poco/pkg/utils/json"
)

// DefaultServer is where a locally run daemon listens.
const DefaultServer = "http://127.0.0.1:11750"

// APIError is a non-2xx reply decoded from the daemon's error envelope.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Reference  string `json:"reference,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
}

// Client talks to one poco daemon.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a client for the daemon at baseURL. A missing scheme
// defaults to http; token is sent as a bearer credential when set.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

// Plugins fetches the descriptor and runtime state of every known plugin.
func (c *Client) Plugins(ctx context.Context) (*PluginList, error) {
	var out PluginList
	if err := c.do(ctx, http.MethodGet, "/v1/plugins", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// PluginStatus fetches one plugin's merged descriptor and runtime state.
func (c *Client) PluginStatus(ctx context.Context, id string) (*PluginInfo, error) {
	var out PluginInfo
	if err := c.do(ctx, http.MethodGet, "/v1/plugins/"+id+"/status", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// StartPlugin starts a plugin, optionally overriding manifest options.
func (c *Client) StartPlugin(ctx context.Context, id string, options map[string]string) (*PluginInfo, error) {
	var body interface{}
	if len(options) > 0 {
		body = map[string]interface{}{"options": options}
	}

	var out PluginInfo
	if err := c.do(ctx, http.MethodPost, "/v1/plugins/"+id+"/start", body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// StopPlugin stops a running plugin.
func (c *Client) StopPlugin(ctx context.Context, id string) (*PluginInfo, error) {
	var out PluginInfo
	if err := c.do(ctx, http.MethodPost, "/v1/plugins/"+id+"/stop", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// RestartPlugin stops then starts a plugin.
func (c *Client) RestartPlugin(ctx context.Context, id string) (*PluginInfo, error) {
	var out PluginInfo
	if err := c.do(ctx, http.MethodPost, "/v1/plugins/"+id+"/restart", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ApprovePlugin grants every permission a plugin's manifest declares.
func (c *Client) ApprovePlugin(ctx context.Context, id string) (*PluginInfo, error) {
	var out PluginInfo
	if err := c.do(ctx, http.MethodPost, "/v1/plugins/"+id+"/approve", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Rescan reloads the plugin manifests from disk.
func (c *Client) Rescan(ctx context.Context) (*PluginList, error) {
	var out PluginList
	if err := c.do(ctx, http.MethodPost, "/v1/plugins/rescan", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Usage fetches the plugin usage analytics snapshot.
func (c *Client) Usage(ctx context.Context) (*UsageReport, error) {
	var out UsageReport
	if err := c.do(ctx, http.MethodGet, "/v1/plugins/usage", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Chat runs one chat turn and returns the final reply.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Version fetches the daemon's build information.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var out VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}

		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
