package clients

import (
	"context"
	"net/http"
)

// forwardedHeaders are copied from the public request to market-service.
var forwardedHeaders = []string{"Content-Type", "Accept", "X-Request-Id"}

// MarketClient proxies requests to market-service.
type MarketClient struct {
	base *BaseClient
}

// NewMarketClient returns client instance.
func NewMarketClient(baseURL string, httpClient HTTPDoer) *MarketClient {
	return &MarketClient{base: NewBaseClient(baseURL, httpClient)}
}

// Forward relays a request to market-service under the same path. The reply is not
// buffered, so ledger listings of any size pass through; the caller closes the body.
func (c *MarketClient) Forward(ctx context.Context, method, path, rawQuery string, body []byte, in http.Header) (*http.Response, error) {
	headers := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := in.Get(name); v != "" {
			headers.Set(name, v)
		}
	}
	return c.base.Send(ctx, method, path, rawQuery, body, headers)
}

// Health checks market-service /health.
func (c *MarketClient) Health(ctx context.Context) (*Response, error) {
	return c.base.Do(ctx, http.MethodGet, "/health", "", nil, nil)
}
