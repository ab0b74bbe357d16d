// Package remote talks to the execution and persistence services over
// HTTP. Every call carries the session credential found in its context.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/auth"
)

// DefaultTimeout bounds a single remote call when no HTTP client is given.
const DefaultTimeout = 2 * time.Minute

// Client is both the Executor and the DocumentStore backed by the remote
// service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ ports.Executor      = (*Client)(nil)
	_ ports.DocumentStore = (*Client)(nil)
)

// NewClient creates a client for the service rooted at baseURL. A nil
// httpClient gets one with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Execute posts the request to /execute-workflow and returns the service
// response as is, including success=false.
func (c *Client) Execute(ctx context.Context, req *agentflow.ExecutionRequest) (*agentflow.ExecutionResult, error) {
	var res agentflow.ExecutionResult
	if err := c.do(ctx, "execute workflow", http.MethodPost, "/execute-workflow", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create saves doc through POST /workflow. The caller must have a user id.
func (c *Client) Create(ctx context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	s, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	body := *doc
	body.UserID = s.UserID

	var raw json.RawMessage
	if err := c.do(ctx, "save workflow", http.MethodPost, "/workflow", &body, &raw); err != nil {
		return nil, err
	}
	saved, err := decodeOne(raw)
	if err != nil || saved.ID == "" {
		// The service acknowledged the save without echoing the document.
		return &body, nil
	}
	return saved, nil
}

// List returns the caller's saved workflows. The service answers with
// either a bare array or an object wrapping it in "data".
func (c *Client) List(ctx context.Context) ([]*agentflow.Document, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, "list workflows", http.MethodGet, "/workflow", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw)
}

func (c *Client) Get(ctx context.Context, id string) (*agentflow.Document, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "load workflow", http.MethodGet, "/workflow/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne(raw)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete workflow", http.MethodDelete, "/workflow/"+url.PathEscape(id), nil, nil)
}

// Ping checks that the service is reachable through GET /test.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "test connection", http.MethodGet, "/test", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s := auth.FromContext(ctx)
	if s.ID != "" {
		req.Header.Set(auth.HeaderSessionID, s.ID)
	}
	if s.UserID != "" {
		req.Header.Set(auth.HeaderUserID, s.UserID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &agentflow.NetworkError{Op: op, Err: fmt.Errorf("no response from server: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if id, ok := strings.CutPrefix(path, "/workflow/"); ok && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", agentflow.ErrNotFound, id)
		}
		return &agentflow.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(msg)))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &agentflow.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodeList(raw json.RawMessage) ([]*agentflow.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &agentflow.MalformedDataError{Field: "data"}
		}
		raw = bytes.TrimSpace(env.Data)
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &agentflow.MalformedDataError{Field: "data"}
	}
	var docs []*agentflow.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, &agentflow.MalformedDataError{Field: "data"}
	}
	return docs, nil
}

// decodeOne accepts a bare document or one wrapped in "data".
func decodeOne(raw json.RawMessage) (*agentflow.Document, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(bytes.TrimSpace(env.Data)) > 0 && env.Data[0] == '{' {
		raw = env.Data
	}
	var doc agentflow.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return &doc, nil
}
