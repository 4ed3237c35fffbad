// Package client is a small HTTP client for the ingestion API, used by the
// MCP bridge and the importer CLI.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"mentraflow-backend/application/services"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/pkg/common"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to the /api/mcp endpoints.
type Client struct {
	http *resty.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == 503
		})
	return &Client{http: rc}
}

// SubmitExport sends conversations for background processing.
func (c *Client) SubmitExport(ctx context.Context, userID string, conversations []entities.Conversation) (*services.SubmitExportResult, error) {
	var result services.SubmitExportResult
	var apiErr common.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(services.SubmitExportRequest{UserID: userID, Conversations: conversations}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/mcp/receive-export")
	if err != nil {
		return nil, fmt.Errorf("submit export: %w", err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp.StatusCode(), apiErr)
	}
	return &result, nil
}

// ImportStatus polls the state of an import.
func (c *Client) ImportStatus(ctx context.Context, importID string) (*services.ImportStatus, error) {
	var status services.ImportStatus
	var apiErr common.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		SetError(&apiErr).
		Get("/api/mcp/status/" + url.PathEscape(importID))
	if err != nil {
		return nil, fmt.Errorf("import status: %w", err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp.StatusCode(), apiErr)
	}
	return &status, nil
}

func toAPIError(status int, body common.ErrorResponse) error {
	return &APIError{StatusCode: status, Code: body.Error.Code, Message: body.Error.Message}
}
