package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// ErrResponseTooLarge is returned by Do when the upstream reply exceeds maxResponseBytes.
var ErrResponseTooLarge = errors.New("clients: upstream response too large")

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Response is a fully read upstream reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// BaseClient sends requests relative to one upstream base URL.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path, rawQuery string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// Send executes one request and hands back the open response; the caller closes its body.
func (c *BaseClient) Send(ctx context.Context, method, path, rawQuery string, body []byte, headers http.Header) (*http.Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, rawQuery), reader)
	if err != nil {
		return nil, err
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

// Do executes one request and buffers the reply. Replies over maxResponseBytes fail
// with ErrResponseTooLarge instead of being cut short.
func (c *BaseClient) Do(ctx context.Context, method, path, rawQuery string, body []byte, headers http.Header) (*Response, error) {
	resp, err := c.Send(ctx, method, path, rawQuery, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("%w: %s %s", ErrResponseTooLarge, method, path)
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
