package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom/internal/types"
)

// idempotencyHeader carries a fresh key per command so retried requests
// are deduplicated server side.
const idempotencyHeader = "Idempotency-Key"

// CommandError is a command the runtime service rejected.
type CommandError struct {
	// Status is the HTTP status code of the rejection.
	Status int `json:"-"`

	// Code is the service's machine-readable error code, if any.
	Code string `json:"code"`

	// Message describes the rejection.
	Message string `json:"message"`
}

// Error returns a formatted error string.
func (e *CommandError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (http %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.Status)
}

// StartRequest asks the runtime service to start a workflow run.
type StartRequest struct {
	// WorkflowID names the workflow to start.
	WorkflowID string `json:"workflowId"`

	// Module optionally carries the flow module source so the service
	// does not need the workflow registered ahead of time.
	Module string `json:"module,omitempty"`

	// Context seeds the run's shared context.
	Context map[string]any `json:"context,omitempty"`
}

type startResponse struct {
	ExecutionID string `json:"executionId"`
}

// Client issues execution commands to a runtime service over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithClientLogger sets the logger commands are logged to.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a command client rooted at baseURL, for example
// "http://localhost:7071/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches a run and returns the execution id assigned to it.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	if req.WorkflowID == "" {
		return "", types.NewError(types.EXEC_COMMAND_FAILED, "workflow id must not be empty")
	}
	var out startResponse
	if err := c.post(ctx, "/executions", req, &out); err != nil {
		return "", err
	}
	if out.ExecutionID == "" {
		return "", types.NewError(types.EXEC_COMMAND_FAILED, "service returned no execution id")
	}
	c.logger.InfoContext(ctx, "execution started",
		"workflow_id", req.WorkflowID,
		"execution_id", out.ExecutionID)
	return out.ExecutionID, nil
}

// Pause suspends a running execution.
func (c *Client) Pause(ctx context.Context, executionID string) error {
	return c.command(ctx, executionID, "pause")
}

// Resume continues a paused execution.
func (c *Client) Resume(ctx context.Context, executionID string) error {
	return c.command(ctx, executionID, "resume")
}

// Cancel stops an execution. Cancellation is cooperative: the runtime
// finishes the current node before it stops.
func (c *Client) Cancel(ctx context.Context, executionID string) error {
	return c.command(ctx, executionID, "cancel")
}

func (c *Client) command(ctx context.Context, executionID, verb string) error {
	if executionID == "" {
		return types.NewError(types.EXEC_COMMAND_FAILED, "execution id must not be empty")
	}
	path := fmt.Sprintf("/executions/%s/%s", url.PathEscape(executionID), verb)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "execution command accepted",
		"execution_id", executionID,
		"command", verb)
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return types.WrapError(types.EXEC_COMMAND_FAILED, "failed to encode request", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return types.WrapError(types.EXEC_COMMAND_FAILED, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, uuid.NewString())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return types.WrapError(types.EXEC_COMMAND_FAILED, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeCommandError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.WrapError(types.EXEC_COMMAND_FAILED, "failed to decode response", err)
		}
	}
	return nil
}

func decodeCommandError(resp *http.Response) error {
	cerr := &CommandError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, cerr)
	}
	if cerr.Message == "" {
		cerr.Message = http.StatusText(resp.StatusCode)
	}
	return cerr
}
