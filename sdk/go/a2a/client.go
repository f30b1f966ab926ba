// Package a2a is a small Go client for the A2A Supervisor REST API.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Job statuses reported by the jobs endpoints.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Client wraps the HTTP interactions with the supervisor API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// RPCError is the JSON-RPC error object carried by a failed task response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TaskResponse is one JSON-RPC 2.0 response. Exactly one of Result and Error
// is set.
type TaskResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// OK reports whether the task succeeded.
func (r TaskResponse) OK() bool { return r.Error == nil }

// Job is the asynchronous view of a query.
type Job struct {
	ID          string         `json:"id"`
	Query       string         `json:"query"`
	Status      string         `json:"status"`
	Attempts    int            `json:"attempts"`
	Responses   []TaskResponse `json:"responses,omitempty"`
	FailedTasks int            `json:"failed_tasks"`
	LastError   string         `json:"last_error,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Binding maps one skill to the agent serving it.
type Binding struct {
	Skill string `json:"skill"`
	Agent string `json:"agent"`
}

// APIError represents a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// RPC is set when the server rejected the request body with a JSON-RPC
	// error envelope (-32700 or -32600).
	RPC *RPCError
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.RPC != nil {
		return fmt.Sprintf("a2a api error (%d): %d %s", e.StatusCode, e.RPC.Code, e.RPC.Message)
	}
	return fmt.Sprintf("a2a api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the supervisor API. When httpClient is
// nil a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

type queryRequest struct {
	Query string `json:"query"`
}

// Query runs a query synchronously and returns one response per task, in
// task order.
func (c *Client) Query(ctx context.Context, text string) ([]TaskResponse, error) {
	var out []TaskResponse
	if err := c.post(ctx, "/api/v1/query", queryRequest{Query: text}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitJob queues a query for asynchronous execution.
func (c *Client) SubmitJob(ctx context.Context, text string) (Job, error) {
	var job Job
	if err := c.post(ctx, "/api/v1/jobs", queryRequest{Query: text}, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetJob fetches a job by identifier.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	if err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first. limit <= 0 uses the
// server default.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var jobs []Job
	if err := c.get(ctx, "/api/v1/jobs", query, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// WaitForJob polls until the job is done or ctx ends.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Agents lists the skill bindings known to the server.
func (c *Client) Agents(ctx context.Context) ([]Binding, error) {
	var bindings []Binding
	if err := c.get(ctx, "/api/v1/agents", nil, &bindings); err != nil {
		return nil, err
	}
	return bindings, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint), RawQuery: query.Encode()}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError accepts both error shapes the server emits: a JSON-RPC
// envelope {"error":{"code":..,"message":..}} and a plain {"error":"..."}.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error response: %w", err)
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && len(envelope.Error) > 0 {
		var rpc RPCError
		var message string
		switch {
		case json.Unmarshal(envelope.Error, &rpc) == nil && rpc.Message != "":
			apiErr.RPC = &rpc
			apiErr.Message = rpc.Message
		case json.Unmarshal(envelope.Error, &message) == nil:
			apiErr.Message = message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(data))
	}
	return apiErr
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
