package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zapflow/zapflow/pkg/protocol"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPClient performs api_call node requests. The idempotency key travels as
// a header so well-behaved endpoints can deduplicate retried steps.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates the default HTTP executor.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Do performs one JSON request.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body map[string]any, idempotencyKey string) (*protocol.CallResult, error) {
	var reqBody io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &protocol.CallResult{StatusCode: resp.StatusCode}

	if len(data) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err == nil {
			result.Body = parsed
		} else {
			result.Body = map[string]any{"raw": string(data)}
		}
	}

	return result, nil
}
