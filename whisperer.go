// Package whisperer is a client for the Whisperer document-to-text
// extraction API: submit documents, poll asynchronous jobs to completion,
// retrieve extractions, manage webhooks and map highlight coordinates.
package whisperer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/whisperer/internal/config"
	"github.com/local/whisperer/internal/logger"
	"github.com/local/whisperer/internal/redact"
	"github.com/local/whisperer/internal/retry"
	"github.com/local/whisperer/internal/transport"
)

// RetryOptions bounds retries of transient failures (429/5xx/network).
type RetryOptions struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// Options configures a Client. Zero values fall back to environment
// configuration (WHISPERER_* variables) and library defaults.
type Options struct {
	BaseURL      string
	APIKey       string
	APITimeout   time.Duration
	Retry        *RetryOptions // nil takes env/default budget
	PollInterval time.Duration
	Logger       *zerolog.Logger // nil builds one from Logging
	Logging      logger.Options
}

// Client talks to one Whisperer deployment with one credential. It holds
// no mutable state after construction and is safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	apiTimeout   time.Duration
	retryOpts    RetryOptions
	pollInterval time.Duration
	log          zerolog.Logger
	tr           *transport.Transport

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Client. Unset options fall back to WHISPERER_* env vars,
// then to defaults (public API URL, 120s timeout, 3 retries, 5s polls).
func New(opts Options) (*Client, error) {
	cfg := config.FromEnv()

	if opts.BaseURL == "" {
		opts.BaseURL = cfg.API.BaseURL
	}
	if opts.APIKey == "" {
		opts.APIKey = cfg.API.APIKey
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = cfg.API.Timeout
	}
	if opts.Retry == nil {
		opts.Retry = &RetryOptions{
			MaxRetries: cfg.Retry.MaxRetries,
			MinWait:    cfg.Retry.MinWait,
			MaxWait:    cfg.Retry.MaxWait,
		}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = cfg.Poll.Interval
	}

	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		lopts := opts.Logging
		if lopts.Level == "" {
			lopts.Level = cfg.Logging.Level
		}
		var err error
		log, err = logger.New(lopts)
		if err != nil {
			return nil, err
		}
	}

	c := &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		apiTimeout:   opts.APITimeout,
		retryOpts:    *opts.Retry,
		pollInterval: opts.PollInterval,
		log:          log,
		tr:           transport.New(opts.BaseURL, opts.APIKey, log),
		now:          time.Now,
		sleep:        time.Sleep,
	}

	c.log.Debug().
		Str("base_url", c.baseURL).
		Str("api_key", redact.MustKey(c.apiKey)).
		Dur("api_timeout", c.apiTimeout).
		Msg("whisperer client created")

	return c, nil
}

// noDeadline marks calls bounded only by their own timeout and budget.
var noDeadline time.Time

// call routes one logical request through the retry engine. A zero
// deadline means the call is bounded only by its own timeout and budget.
func (c *Client) call(ctx context.Context, req transport.Request, timeout time.Duration, deadline time.Time) (*transport.Envelope, error) {
	budget := retry.Budget{
		MaxRetries: c.retryOpts.MaxRetries,
		MinWait:    c.retryOpts.MinWait,
		MaxWait:    c.retryOpts.MaxWait,
		Deadline:   deadline,
	}
	eng := retry.New(budget, req.Path, c.log).WithClock(c.now, c.sleep)
	return eng.Do(ctx, timeout, func(ctx context.Context, t time.Duration) (*transport.Envelope, error) {
		return c.tr.Do(ctx, req, t)
	})
}
