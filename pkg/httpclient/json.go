package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Doer executes HTTP requests. Both Client and CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// GetJSON issues a GET through doer and decodes a 2xx JSON body into dst.
// Other statuses are translated by ParseResponseError.
func GetJSON(ctx context.Context, doer Doer, url, serviceName string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", serviceName, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s: %w", serviceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	return nil
}
