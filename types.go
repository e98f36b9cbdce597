package whisperer

import (
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// JobStatus is the remote service's status string for a whisper job.
type JobStatus string

const (
	StatusAccepted   JobStatus = "accepted"
	StatusProcessing JobStatus = "processing"
	StatusProcessed  JobStatus = "processed"
	StatusDelivered  JobStatus = "delivered"
	StatusFailed     JobStatus = "failed"
	StatusError      JobStatus = "error"
	StatusUnknown    JobStatus = "unknown"
)

// ErrorLike reports whether the status denotes a failed job. Older
// service versions embedded "error" inside longer status strings, so this
// matches on substring containment. That shim can false-positive on a
// future status that legitimately contains "error"; it is kept for
// backward compatibility and isolated here so a later protocol version
// can drop it.
func (s JobStatus) ErrorLike() bool {
	return s == StatusError || strings.Contains(string(s), "error")
}

// WhisperParams describes one document submission. Exactly one of
// FilePath, Stream or URL must be set. Zero values take the service
// defaults listed on each field.
type WhisperParams struct {
	FilePath string
	Stream   io.Reader
	URL      string

	Mode                    string  // "form"
	OutputMode              string  // "layout_preserving"
	PageSeparator           string  // "<<<"
	PagesToExtract          string
	MedianFilterSize        int
	GaussianBlurRadius      int
	LineSplitterTolerance   float64 // 0.4
	HorizontalStretchFactor float64 // 1.0
	MarkVerticalLines       bool
	MarkHorizontalLines     bool
	LineSplitterStrategy    string // "left-priority"
	Lang                    string // "eng"
	Tag                     string // "default"
	Filename                string
	WebhookMetadata         string
	UseWebhook              string

	WaitForCompletion bool
	WaitTimeout       time.Duration // 180s; must stay within (0, 200]s
}

func (p *WhisperParams) applyDefaults() {
	if p.Mode == "" {
		p.Mode = "form"
	}
	if p.OutputMode == "" {
		p.OutputMode = "layout_preserving"
	}
	if p.PageSeparator == "" {
		p.PageSeparator = "<<<"
	}
	if p.LineSplitterTolerance == 0 {
		p.LineSplitterTolerance = 0.4
	}
	if p.HorizontalStretchFactor == 0 {
		p.HorizontalStretchFactor = 1.0
	}
	if p.LineSplitterStrategy == "" {
		p.LineSplitterStrategy = "left-priority"
	}
	if p.Lang == "" {
		p.Lang = "eng"
	}
	if p.Tag == "" {
		p.Tag = "default"
	}
	if p.WaitTimeout == 0 {
		p.WaitTimeout = 180 * time.Second
	}
}

// query renders the submission parameters under their wire names. The
// misspellings ("page_seperator", "line_spitter_strategy") are part of
// the service's compatibility surface.
func (p *WhisperParams) query() url.Values {
	q := url.Values{}
	q.Set("mode", p.Mode)
	q.Set("output_mode", p.OutputMode)
	q.Set("page_seperator", p.PageSeparator)
	q.Set("pages_to_extract", p.PagesToExtract)
	q.Set("median_filter_size", strconv.Itoa(p.MedianFilterSize))
	q.Set("gaussian_blur_radius", strconv.Itoa(p.GaussianBlurRadius))
	q.Set("line_splitter_tolerance", strconv.FormatFloat(p.LineSplitterTolerance, 'g', -1, 64))
	q.Set("horizontal_stretch_factor", strconv.FormatFloat(p.HorizontalStretchFactor, 'g', -1, 64))
	q.Set("mark_vertical_lines", strconv.FormatBool(p.MarkVerticalLines))
	q.Set("mark_horizontal_lines", strconv.FormatBool(p.MarkHorizontalLines))
	q.Set("line_spitter_strategy", p.LineSplitterStrategy)
	q.Set("lang", p.Lang)
	q.Set("tag", p.Tag)
	q.Set("filename", p.Filename)
	q.Set("webhook_metadata", p.WebhookMetadata)
	q.Set("use_webhook", p.UseWebhook)
	return q
}

// WhisperResult is the unified outcome of a whisper operation. StatusCode
// -1 is the client-side sentinel: the operation failed before reaching
// the service meaningfully, the job itself failed, or waiting timed out.
// Extraction is non-empty only when StatusCode is 200 and Status is
// "processed".
type WhisperResult struct {
	StatusCode  int
	Message     string
	Status      JobStatus
	WhisperHash string
	Extraction  map[string]any
}

// StatusResult is the outcome of a whisper-status call.
type StatusResult struct {
	StatusCode int
	Status     JobStatus
	Body       map[string]any
}

// RetrieveResult is the outcome of a whisper-retrieve call.
type RetrieveResult struct {
	StatusCode int
	Extraction map[string]any
}
