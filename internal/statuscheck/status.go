// Package statuscheck probes the prerequisites of a working client:
// credentials present and the Whisperer API reachable.
package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Checker aggregates reachability checks used by the demo CLI.
type Checker struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Options configures the Checker.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Status represents the readiness of one prerequisite.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all prerequisite statuses.
type Summary struct {
	Config Status `json:"config"`
	API    Status `json:"api"`
	Auth   Status `json:"auth"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	s := Summary{Config: c.checkConfig()}
	s.API, s.Auth = c.checkAPI(ctx)
	return s
}

func (c *Checker) checkConfig() Status {
	if c.baseURL == "" {
		return Status{OK: false, Message: "Base URL not configured"}
	}
	if c.apiKey == "" {
		return Status{OK: false, Message: "API key missing"}
	}
	return Status{OK: true, Message: "Configured"}
}

// checkAPI issues one cheap authenticated call. Any HTTP response at all
// means the endpoint is reachable; 401/403 additionally means the key was
// rejected.
func (c *Checker) checkAPI(ctx context.Context) (api Status, auth Status) {
	if c.baseURL == "" {
		return Status{OK: false, Message: "Base URL not configured"}, Status{OK: false, Message: "Not checked"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-usage-info", nil)
	req.Header.Set("unstract-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}, Status{OK: false, Message: "Not checked"}
	}
	defer resp.Body.Close()

	api = Status{OK: true, Message: "Reachable"}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		auth = Status{OK: false, Message: fmt.Sprintf("Key rejected (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode >= 500:
		auth = Status{OK: false, Message: fmt.Sprintf("Service fault (HTTP %d)", resp.StatusCode)}
	default:
		auth = Status{OK: true, Message: "Accepted"}
	}
	return api, auth
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
