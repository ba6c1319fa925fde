// Package adminapi provides the typed HTTP client for the Yume admin API.
// Every operation normalizes transport and parse failures into a uniform
// error contract: non-success responses surface the server's JSON "error"
// field when present, the raw body otherwise.
package adminapi

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

	"yumeadmin/internal/logger"
	"yumeadmin/pkg/yumetypes"
)

const maxResponseBytes = 4 << 20

// APIError is the uniform failure raised for any non-success response.
// Message carries the server's "error" field when the body parses as the
// expected error shape, the raw response text otherwise.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client issues requests against one admin API base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL. A zero timeout falls back to
// 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ConfigUpdate is the write shape for the configuration resource. Only the
// well-defined mutable fields are serialized; the secret key is sent as given
// and never read back.
type ConfigUpdate struct {
	AIBaseURL     string  `json:"aiBaseUrl"`
	AIModel       string  `json:"aiModel"`
	AIProfile     string  `json:"aiProfile"`
	AITemperature float64 `json:"aiTemperature"`
	AIMaxTokens   int     `json:"aiMaxTokens"`
	AITimeout     int     `json:"aiTimeout"`
	AIRetryCount  int     `json:"aiRetryCount"`
	AIRateLimit   int     `json:"aiRateLimit"`
	AITopP        float64 `json:"aiTopP"`
	AIPromptRaw   string  `json:"aiPromptRaw"`
	Character     string  `json:"character"`
	AIKey         string  `json:"aiKey"`
}

// GetConfig fetches the configuration record and decodes it onto dst.
// Fields absent from the response keep their previous value in dst, which is
// how callers implement field-preserving merges.
func (c *Client) GetConfig(ctx context.Context, dst *yumetypes.AdminConfig) error {
	return c.do(ctx, http.MethodGet, "/api/admin/config", nil, nil, dst)
}

// UpdateConfig writes the configuration and merges the server's response
// onto dst. The response is the authoritative merge source after a save.
func (c *Client) UpdateConfig(ctx context.Context, payload ConfigUpdate, dst *yumetypes.AdminConfig) error {
	return c.do(ctx, http.MethodPut, "/api/admin/config", nil, payload, dst)
}

// GetAIProfile fetches the named profile and merges its fields onto dst,
// preserving any field the profile document omits. It returns the profile
// name the server reports.
func (c *Client) GetAIProfile(ctx context.Context, name string, dst *yumetypes.AdminConfig) (string, error) {
	path := "/api/admin/ai-profiles/" + url.PathEscape(name)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return "", fmt.Errorf("decode ai profile response: %w", err)
	}
	var meta struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", fmt.Errorf("decode ai profile response: %w", err)
	}
	return meta.Name, nil
}

// ListCharacters fetches the known character identifiers.
func (c *Client) ListCharacters(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/api/admin/characters", nil, nil, &names); err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// GetCharacter fetches one character document by identifier.
func (c *Client) GetCharacter(ctx context.Context, name string) (*yumetypes.CharacterEnvelope, error) {
	path := "/api/admin/characters/" + url.PathEscape(name)
	var env yumetypes.CharacterEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// UpdateCharacter writes the document stored under the given identifier.
func (c *Client) UpdateCharacter(ctx context.Context, name string, doc yumetypes.CharacterDocument) (*yumetypes.CharacterEnvelope, error) {
	path := "/api/admin/characters/" + url.PathEscape(name)
	body := struct {
		Config yumetypes.CharacterDocument `json:"config"`
	}{Config: doc}

	var env yumetypes.CharacterEnvelope
	if err := c.do(ctx, http.MethodPut, path, nil, body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// CreateCharacter creates a new document under the given identifier.
func (c *Client) CreateCharacter(ctx context.Context, name string, doc yumetypes.CharacterDocument) (*yumetypes.CharacterEnvelope, error) {
	body := struct {
		Name   string                      `json:"name"`
		Config yumetypes.CharacterDocument `json:"config"`
	}{Name: name, Config: doc}

	var env yumetypes.CharacterEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/admin/characters", nil, body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ListLogFiles fetches the tailable log sources, newest first.
func (c *Client) ListLogFiles(ctx context.Context) ([]yumetypes.LogFileDescriptor, error) {
	var files []yumetypes.LogFileDescriptor
	if err := c.do(ctx, http.MethodGet, "/api/admin/logs/files", nil, nil, &files); err != nil {
		return nil, err
	}
	if files == nil {
		files = []yumetypes.LogFileDescriptor{}
	}
	return files, nil
}

// GetLogContent fetches a bounded slice of one log file. The request carries
// a timestamp parameter and no-store header so intermediaries never serve a
// cached tail.
func (c *Client) GetLogContent(ctx context.Context, file string, lines int) (*yumetypes.LogContent, error) {
	query := url.Values{}
	query.Set("file", file)
	query.Set("lines", fmt.Sprintf("%d", lines))
	query.Set("_ts", fmt.Sprintf("%d", time.Now().UnixMilli()))

	var content yumetypes.LogContent
	if err := c.do(ctx, http.MethodGet, "/api/admin/logs/content", query, nil, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// StreamURL builds the server-push endpoint URL for the given target. The
// stream client dials it with its own connection, outside this client's
// request timeout.
func (c *Client) StreamURL(file string, lines int) string {
	query := url.Values{}
	query.Set("file", file)
	query.Set("lines", fmt.Sprintf("%d", lines))
	return c.baseURL + "/api/admin/logs/stream?" + query.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("admin api base url is empty")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cache-Control", "no-store")

	logger.Debug("admin api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func newAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{StatusCode: statusCode, Message: payload.Error}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return &APIError{StatusCode: statusCode, Message: text}
	}
	return &APIError{StatusCode: statusCode, Message: "request failed"}
}
