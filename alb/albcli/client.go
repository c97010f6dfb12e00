// Package albcli is a small client for a running offline engine: plain HTTP
// calls against registered routes, and raw function invocations through the
// Lambda-style invocation endpoint.
package albcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Response carries a route reply back to the caller.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// InvokeOutput carries a raw invocation reply. FunctionError is non-empty
// when the function failed; Payload then holds the structured error body.
type InvokeOutput struct {
	FunctionError string
	Payload       []byte
}

type Client struct {
	*Options
}

func NewClient(opts ...Option) *Client {
	return &Client{
		Options: NewOptions(opts...),
	}
}

// Get sends a GET request to a registered route.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request to a registered route.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends an HTTP request to the engine and reads the whole reply. The
// status code is reported, never interpreted; routed replies carry function
// errors as structured bodies, not transport failures.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	return c.do(ctx, method, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, extra map[string]string) (*Response, error) {
	timeout := c.DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("albcli: build request: %w", err)
	}
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("albcli: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("albcli: read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Invoke posts an event to the invocation endpoint of one function and
// returns the result payload. A non-2xx status is an endpoint error (for
// example an unknown function key); a function failure comes back with a
// 200 status and the X-Amz-Function-Error header set.
func (c *Client) Invoke(ctx context.Context, functionKey string, event any) (*InvokeOutput, error) {
	var payload []byte
	if event != nil {
		b, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("albcli: marshal event: %w", err)
		}
		payload = b
	}

	path := fmt.Sprintf("/2015-03-31/functions/%s/invocations", url.PathEscape(functionKey))
	resp, err := c.Do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("albcli: invoke %s: status %d: %s", functionKey, resp.StatusCode, resp.Body)
	}

	return &InvokeOutput{
		FunctionError: resp.Headers.Get("X-Amz-Function-Error"),
		Payload:       resp.Body,
	}, nil
}

// InvokeAsync posts an event invocation and returns once the engine has
// queued it. The returned request id identifies the invocation in logs and
// dead-letter records.
func (c *Client) InvokeAsync(ctx context.Context, functionKey string, event any) (string, error) {
	var payload []byte
	if event != nil {
		b, err := json.Marshal(event)
		if err != nil {
			return "", fmt.Errorf("albcli: marshal event: %w", err)
		}
		payload = b
	}

	path := fmt.Sprintf("/2015-03-31/functions/%s/invocations", url.PathEscape(functionKey))
	headers := map[string]string{"X-Amz-Invocation-Type": "Event"}
	resp, err := c.do(ctx, http.MethodPost, path, payload, headers)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("albcli: invoke %s: status %d: %s", functionKey, resp.StatusCode, resp.Body)
	}

	return resp.Headers.Get("X-Amzn-Requestid"), nil
}

func (c *Client) httpClient() HTTPClient {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
