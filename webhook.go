package whisperer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/local/whisperer/internal/transport"
)

const webhookPath = "/whisper-manage-callback"

// RegisterWebhook registers a named webhook that the service will call
// when extractions submitted with UseWebhook complete.
func (c *Client) RegisterWebhook(ctx context.Context, webhookURL, authToken, webhookName string) (map[string]any, error) {
	return c.manageWebhook(ctx, http.MethodPost, webhookURL, authToken, webhookName)
}

// UpdateWebhookDetails replaces the URL and auth token of an existing
// webhook.
func (c *Client) UpdateWebhookDetails(ctx context.Context, webhookURL, authToken, webhookName string) (map[string]any, error) {
	return c.manageWebhook(ctx, http.MethodPut, webhookURL, authToken, webhookName)
}

func (c *Client) manageWebhook(ctx context.Context, method, webhookURL, authToken, webhookName string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{
		"url":          webhookURL,
		"auth_token":   authToken,
		"webhook_name": webhookName,
	})
	if err != nil {
		return nil, err
	}

	env, err := c.call(ctx, transport.Request{
		Method:      method,
		Path:        webhookPath,
		Body:        body,
		ContentType: "application/json",
	}, c.apiTimeout, noDeadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}
	return env.Body, nil
}

// GetWebhookDetails returns the stored details of a named webhook.
func (c *Client) GetWebhookDetails(ctx context.Context, webhookName string) (map[string]any, error) {
	q := url.Values{}
	q.Set("webhook_name", webhookName)

	env, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   webhookPath,
		Query:  q,
	}, c.apiTimeout, noDeadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}
	return env.Body, nil
}

// DeleteWebhook removes a named webhook.
func (c *Client) DeleteWebhook(ctx context.Context, webhookName string) (map[string]any, error) {
	q := url.Values{}
	q.Set("webhook_name", webhookName)

	env, err := c.call(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   webhookPath,
		Query:  q,
	}, c.apiTimeout, noDeadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}
	return env.Body, nil
}
