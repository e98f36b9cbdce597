// Package transport executes single HTTP exchanges against the Whisperer
// API and normalizes responses into envelopes. It never classifies non-2xx
// statuses as failures; that is the caller's job.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/whisperer/internal/metrics"
)

// HashHeader is the response header carrying the job handle on
// synchronous extractions.
const HashHeader = "whisper-hash"

const authHeader = "unstract-key"

// Request describes one HTTP exchange to perform. Body is held as bytes
// so the exchange can be safely re-issued by a retrying caller.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
}

// Envelope is the normalized result of one exchange.
type Envelope struct {
	StatusCode  int
	RawBody     string
	Body        map[string]any
	WhisperHash string
}

// Message returns the service-provided message from the decoded body, or
// the empty string.
func (e *Envelope) Message() string {
	if e == nil || e.Body == nil {
		return ""
	}
	if m, ok := e.Body["message"].(string); ok {
		return m
	}
	return ""
}

// Transport issues requests against a fixed base URL with a fixed
// credential header.
type Transport struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func New(baseURL, apiKey string, log zerolog.Logger) *Transport {
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
		log:     log,
	}
}

// Do performs exactly one exchange with the given timeout and returns the
// normalized envelope. A returned error is always transport-level
// (connection, DNS, timeout); HTTP error statuses come back in the
// envelope.
func (t *Transport) Do(ctx context.Context, req Request, timeout time.Duration) (*Envelope, error) {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(cctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set(authHeader, t.apiKey)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		metrics.ObserveRequest(req.Path, "transport_error", dur)
		t.log.Warn().
			Str("method", req.Method).
			Str("path", req.Path).
			Dur("duration", dur).
			Err(err).
			Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveRequest(req.Path, "transport_error", dur)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	metrics.ObserveRequest(req.Path, strconv.Itoa(resp.StatusCode), dur)
	t.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", dur).
		Msg("request done")

	return &Envelope{
		StatusCode:  resp.StatusCode,
		RawBody:     string(raw),
		Body:        decodeBody(raw),
		WhisperHash: resp.Header.Get(HashHeader),
	}, nil
}

// decodeBody normalizes a response body: JSON objects pass through, bare
// JSON strings and unparseable text are wrapped as {message: ...}. The
// service encodes some error messages as JSON string literals.
func decodeBody(raw []byte) map[string]any {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		switch b := v.(type) {
		case map[string]any:
			return b
		case string:
			return map[string]any{"message": b}
		}
	}
	return map[string]any{"message": string(raw)}
}
