package whisperer

import (
	"fmt"

	"github.com/local/whisperer/internal/transport"
)

// ClientError is the one checked-error contract callers must handle: the
// service rejected the request, retries on a server fault were exhausted,
// or the arguments were invalid before any network call (StatusCode -1).
type ClientError struct {
	Message    string
	StatusCode int
	Extraction map[string]any
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("whisperer: %s (status %d)", e.Message, e.StatusCode)
}

// clientErr builds the client-side sentinel error (no service involved).
func clientErr(msg string) *ClientError {
	return &ClientError{Message: msg, StatusCode: -1, Extraction: map[string]any{}}
}

// errFromEnvelope converts a non-2xx envelope into a ClientError carrying
// the decoded body and the failing status code.
func errFromEnvelope(env *transport.Envelope) *ClientError {
	msg := env.Message()
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d from whisperer service", env.StatusCode)
	}
	return &ClientError{
		Message:    msg,
		StatusCode: env.StatusCode,
		Extraction: map[string]any{},
	}
}
