// Package client talks to the flowcanvas API and keeps an editing session in
// sync with the stored workflow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/dukex/flowcanvas/pkg/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("workflow not found")
	ErrInvalid      = errors.New("invalid request")
)

// APIError is a problem document returned by the API.
type APIError struct {
	Status int                   `json:"status"`
	Type   string                `json:"type"`
	Detail string                `json:"detail"`
	Errors []services.FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "api error %d", e.Status)

	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}

	for _, fieldErr := range e.Errors {
		b.WriteString("; " + fieldErr.Field + " " + fieldErr.Message)
	}

	return b.String()
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalid:
		return e.Status == http.StatusBadRequest
	default:
		return false
	}
}

type Client struct {
	baseURL string
	ownerID string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// New returns a client for the API at baseURL acting as ownerID.
func New(baseURL, ownerID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		ownerID: ownerID,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Create(ctx context.Context, name, description string) (*web.WorkflowHeader, error) {
	var header web.WorkflowHeader

	err := c.do(ctx, http.MethodPost, "/workflows", web.CreateWorkflowRequest{Name: name, Description: description}, &header)
	if err != nil {
		return nil, err
	}

	return &header, nil
}

func (c *Client) List(ctx context.Context) ([]models.WorkflowSummary, error) {
	var summaries []models.WorkflowSummary
	if err := c.do(ctx, http.MethodGet, "/workflows", nil, &summaries); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (c *Client) Get(ctx context.Context, id string) (*web.WorkflowResponse, error) {
	var workflow web.WorkflowResponse
	if err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

// Save sends a full-replace save of the fields present in req.
func (c *Client) Save(ctx context.Context, id string, req web.SaveWorkflowRequest) (*web.WorkflowHeader, error) {
	var header web.WorkflowHeader
	if err := c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), req, &header); err != nil {
		return nil, err
	}

	return &header, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var message web.MessageResponse

	return c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil, &message)
}

func (c *Client) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard", nil, &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(web.OwnerHeader, c.ownerID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Detail = strings.TrimSpace(string(data))
		}

		apiErr.Status = resp.StatusCode

		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}

	return nil
}
