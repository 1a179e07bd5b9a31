package ports

import (
	"context"
)

type HTTPResponse struct {
	StatusCode int         `json:"status_code"`
	Body       interface{} `json:"body,omitempty"`
}

// HTTPClient issues the api_call node's requests. Implementations fail on
// non-2xx statuses and parse JSON response bodies.
type HTTPClient interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body string) (*HTTPResponse, error)
}
