package whisperer

import (
	"context"
	"net/http"

	"github.com/local/whisperer/internal/transport"
)

// GetUsageInfo returns the account's quota counters as reported by the
// service, verbatim.
func (c *Client) GetUsageInfo(ctx context.Context) (map[string]any, error) {
	env, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/get-usage-info",
	}, c.apiTimeout, noDeadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}
	return env.Body, nil
}
