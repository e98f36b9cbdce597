package whisperer

import (
	"context"
	"net/http"
	"net/url"

	"github.com/local/whisperer/internal/transport"
)

// LineMetadata is the per-line placement data returned by the highlight
// endpoint. BaseY is the bottom of the line and PageHeight the height of
// the source page, both in original-page pixels.
type LineMetadata struct {
	Page       int
	BaseY      int
	Height     int
	PageHeight int
}

// HighlightRect is a line's bounding box scaled into a target viewport.
type HighlightRect struct {
	Page int
	X1   int
	Y1   int
	X2   int
	Y2   int
}

// HighlightData returns per-line bounding-box metadata for a line range
// of a processed job, e.g. lines "10-15". The job must have been
// submitted with highlight metadata storage enabled.
func (c *Client) HighlightData(ctx context.Context, whisperHash, lines string) (map[string]any, error) {
	q := url.Values{}
	q.Set("whisper_hash", whisperHash)
	q.Set("lines", lines)

	env, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/highlight",
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

// GetHighlightRect rescales a line's vertical coordinates into a target
// viewport of the given pixel size. The line spans the full width of the
// target. Pure computation, no I/O.
func GetHighlightRect(line LineMetadata, targetWidth, targetHeight int) HighlightRect {
	y1 := line.BaseY - line.Height
	y2 := line.BaseY

	y1 = int(float64(y1) / float64(line.PageHeight) * float64(targetHeight))
	y2 = int(float64(y2) / float64(line.PageHeight) * float64(targetHeight))

	return HighlightRect{
		Page: line.Page,
		X1:   0,
		Y1:   y1,
		X2:   targetWidth,
		Y2:   y2,
	}
}
