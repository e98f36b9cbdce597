package whisperer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/whisperer/internal/metrics"
	"github.com/local/whisperer/internal/retry"
	"github.com/local/whisperer/internal/sources"
	"github.com/local/whisperer/internal/transport"
)

const maxWaitTimeout = 200 * time.Second

// Whisper submits a document for extraction. On a synchronous 200 the
// result is final; on a 202 the job continues remotely under the returned
// whisper hash, and with WaitForCompletion set the call polls until the
// job reaches a terminal state or WaitTimeout elapses.
//
// Job-level terminal outcomes (job failed, wait timed out) come back as a
// result with StatusCode -1 and a nil error; client/service errors come
// back as *ClientError.
func (c *Client) Whisper(ctx context.Context, p WhisperParams) (*WhisperResult, error) {
	p.applyDefaults()

	if p.UseWebhook != "" && p.WaitForCompletion {
		return nil, clientErr("Cannot wait for completion when using webhook")
	}
	if p.URL == "" && p.FilePath == "" && p.Stream == nil {
		return nil, clientErr("Either url, stream or file_path must be provided")
	}
	if p.WaitTimeout <= 0 || p.WaitTimeout > maxWaitTimeout {
		return nil, clientErr("wait_timeout must be between 0 and 200 seconds")
	}

	log := c.log.With().Str("op_id", uuid.NewString()).Logger()

	q := p.query()
	var body []byte
	var contentType string
	switch {
	case p.URL != "":
		q.Set("url_in_post", "true")
		body = []byte(p.URL)
	case p.Stream != nil:
		doc, err := sources.FromReader(p.Stream)
		if err != nil {
			return nil, clientErr(err.Error())
		}
		body = doc.Data
		contentType = doc.ContentType
	default:
		doc, err := sources.FromFile(p.FilePath)
		if err != nil {
			return nil, clientErr(err.Error())
		}
		body = doc.Data
		contentType = doc.ContentType
		if q.Get("filename") == "" {
			q.Set("filename", doc.Filename)
		}
	}

	// One wall-clock budget covers submit, every status poll and the
	// retrieve, so retries never collectively exceed the caller's wait.
	deadline := c.now().Add(p.WaitTimeout)
	submitTimeout := c.apiTimeout
	if p.WaitTimeout < submitTimeout {
		submitTimeout = p.WaitTimeout
	}

	log.Debug().
		Str("mode", p.Mode).
		Str("output_mode", p.OutputMode).
		Bool("wait", p.WaitForCompletion).
		Msg("whisper submit")

	env, err := c.call(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        "/whisper",
		Query:       q,
		Body:        body,
		ContentType: contentType,
	}, submitTimeout, deadline)
	if err != nil {
		return nil, fmt.Errorf("whisper submit: %w", err)
	}

	switch env.StatusCode {
	case http.StatusOK:
		// Extraction finished synchronously.
		return &WhisperResult{
			StatusCode:  200,
			Message:     "Whisper operation completed",
			Status:      StatusProcessed,
			WhisperHash: env.WhisperHash,
			Extraction:  env.Body,
		}, nil

	case http.StatusAccepted:
		hash, _ := env.Body["whisper_hash"].(string)
		if hash == "" {
			hash = env.WhisperHash
		}
		if hash == "" {
			return nil, clientErr("Whisper hash missing from server response")
		}
		res := &WhisperResult{
			StatusCode:  202,
			Message:     env.Message(),
			Status:      StatusAccepted,
			WhisperHash: hash,
			Extraction:  map[string]any{},
		}
		if !p.WaitForCompletion {
			return res, nil
		}
		log.Info().Str("whisper_hash", hash).Msg("accepted, waiting for completion")
		return c.waitForCompletion(ctx, log, res, deadline, p.WaitTimeout)

	default:
		return nil, errFromEnvelope(env)
	}
}

// waitForCompletion drives the poll-until-terminal loop for an accepted
// job, mutating res into the final operation result.
func (c *Client) waitForCompletion(ctx context.Context, log zerolog.Logger, res *WhisperResult, deadline time.Time, waitTimeout time.Duration) (*WhisperResult, error) {
	start := c.now()
	for c.now().Sub(start) < waitTimeout {
		st, err := c.whisperStatus(ctx, res.WhisperHash, deadline)
		if err != nil {
			// The shared deadline starts at submit time, so it can expire
			// mid-poll before the loop's own elapsed check trips.
			if errors.Is(err, retry.ErrDeadlineExhausted) {
				return failResult(res, "Whisper client operation timed out"), nil
			}
			var ce *ClientError
			if errors.As(err, &ce) {
				return failResult(res, "Whisper client operation failed"), nil
			}
			return nil, err
		}
		metrics.IncPoll()

		switch {
		case st.Status == StatusProcessing || st.Status == StatusAccepted:
			log.Debug().
				Str("whisper_hash", res.WhisperHash).
				Str("status", string(st.Status)).
				Msg("still processing")

		case st.Status == StatusProcessed:
			log.Debug().Str("whisper_hash", res.WhisperHash).Msg("processed, retrieving")
			ret, err := c.whisperRetrieve(ctx, res.WhisperHash, deadline)
			if err != nil {
				if errors.Is(err, retry.ErrDeadlineExhausted) {
					return failResult(res, "Whisper client operation timed out"), nil
				}
				var ce *ClientError
				if errors.As(err, &ce) {
					return failResult(res, "Whisper client operation failed"), nil
				}
				return nil, err
			}
			res.StatusCode = 200
			res.Message = "Whisper operation completed"
			res.Status = StatusProcessed
			res.Extraction = ret.Extraction
			return res, nil

		case st.Status == StatusDelivered:
			return nil, clientErr("Whisper operation already delivered")

		case st.Status == StatusUnknown:
			return nil, clientErr("Whisper operation status unknown")

		case st.Status == StatusFailed:
			res.Status = StatusFailed
			return failResult(res, "Whisper operation failed"), nil

		case st.Status.ErrorLike():
			res.Status = StatusError
			msg := "Whisper operation failed"
			if m, ok := st.Body["message"].(string); ok && m != "" {
				msg = m
			}
			return failResult(res, msg), nil

		default:
			log.Warn().
				Str("whisper_hash", res.WhisperHash).
				Str("status", string(st.Status)).
				Msg("unrecognized status, continuing to poll")
		}

		c.sleep(c.pollInterval)
	}

	log.Warn().
		Str("whisper_hash", res.WhisperHash).
		Dur("wait_timeout", waitTimeout).
		Msg("wait for completion timed out")
	return failResult(res, "Whisper client operation timed out"), nil
}

func failResult(res *WhisperResult, msg string) *WhisperResult {
	res.StatusCode = -1
	res.Message = msg
	res.Extraction = map[string]any{}
	return res
}

// WhisperStatus retrieves the status of a whisper job.
func (c *Client) WhisperStatus(ctx context.Context, whisperHash string) (*StatusResult, error) {
	return c.whisperStatus(ctx, whisperHash, time.Time{})
}

func (c *Client) whisperStatus(ctx context.Context, whisperHash string, deadline time.Time) (*StatusResult, error) {
	q := url.Values{}
	q.Set("whisper_hash", whisperHash)

	env, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/whisper-status",
		Query:  q,
	}, c.apiTimeout, deadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}

	status, _ := env.Body["status"].(string)
	return &StatusResult{
		StatusCode: env.StatusCode,
		Status:     JobStatus(status),
		Body:       env.Body,
	}, nil
}

// WhisperRetrieve retrieves the extraction of a processed whisper job.
func (c *Client) WhisperRetrieve(ctx context.Context, whisperHash string) (*RetrieveResult, error) {
	return c.whisperRetrieve(ctx, whisperHash, time.Time{})
}

func (c *Client) whisperRetrieve(ctx context.Context, whisperHash string, deadline time.Time) (*RetrieveResult, error) {
	q := url.Values{}
	q.Set("whisper_hash", whisperHash)

	env, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/whisper-retrieve",
		Query:  q,
	}, c.apiTimeout, deadline)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, errFromEnvelope(env)
	}

	return &RetrieveResult{
		StatusCode: env.StatusCode,
		Extraction: env.Body,
	}, nil
}
