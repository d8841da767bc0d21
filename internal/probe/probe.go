// Package probe issues single HTTP requests against the service under test
// and captures status, headers, body and parsed payload.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/apiparity/internal/spec"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBackoff   = 250 * time.Millisecond
	defaultUserAgent = "apiparity/1"

	// maxBodySize bounds how much of a response body is captured.
	maxBodySize = 16 << 20
)

// Config configures a Probe.
type Config struct {
	// BaseURL is prefixed to every request path ("https://search.example.org/api/v2").
	BaseURL string

	// Timeout bounds each attempt. Zero means 30s.
	Timeout time.Duration

	// Retries is the number of extra attempts after a transport failure.
	// HTTP error statuses are never retried.
	Retries int

	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration

	UserAgent string

	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// Request is one HTTP call to make. Path is already expanded.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// URL joins the request with baseURL.
func (r Request) URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// Probe executes requests. Safe for concurrent use.
type Probe struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Probe.
func New(cfg Config, logger *slog.Logger) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Probe{cfg: cfg, client: client, logger: logger}
}

// Execute performs req, retrying connection failures and timeouts with
// exponential backoff. A request that cannot be built fails on the first
// attempt. It never returns nil; failures are carried in Result.Err.
func (p *Probe) Execute(ctx context.Context, req Request) *Result {
	target := req.URL(p.cfg.BaseURL)
	start := time.Now()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.Backoff << (attempt - 1)
			p.logger.Debug("retrying request", "url", target, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return p.failed(start, attempts, ctx.Err(), true)
			}
		}

		attempts++
		res, retryable, err := p.attempt(ctx, req, target)
		if err == nil {
			res.Attempts = attempts
			res.Elapsed = time.Since(start)
			p.logger.Debug("probe",
				"method", req.Method,
				"url", target,
				"status", res.Status,
				"attempts", attempts,
				"elapsed", res.Elapsed)
			return res
		}
		lastErr = err
		if ctx.Err() != nil {
			return p.failed(start, attempts, ctx.Err(), true)
		}
		if !retryable {
			break
		}
	}
	return p.failed(start, attempts, lastErr, false)
}

func (p *Probe) failed(start time.Time, attempts int, err error, canceled bool) *Result {
	return &Result{
		Elapsed:  time.Since(start),
		Attempts: attempts,
		Err:      &TransportError{Attempts: attempts, Canceled: canceled, Err: err},
	}
}

// attempt performs one round trip. Any error returned is a transport error;
// retryable is false when another attempt cannot succeed.
func (p *Probe) attempt(ctx context.Context, req Request, target string) (res *Result, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(hreq)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	return NewResult(resp.StatusCode, resp.Header.Clone(), body), false, nil
}

// NewResult builds a Result from a received response and parses its body
// according to the Content-Type header.
func NewResult(status int, header http.Header, body []byte) *Result {
	if header == nil {
		header = http.Header{}
	}
	res := &Result{
		Status:      status,
		Header:      header,
		Body:        body,
		ContentType: header.Get("Content-Type"),
	}
	res.parse()
	return res
}

// Result is the captured response. It is created once per request and
// never mutated afterwards.
type Result struct {
	Status      int
	Header      http.Header
	Body        []byte
	ContentType string

	// JSON holds the decoded body for JSON media types (numbers as json.Number).
	JSON any

	// XML holds the parsed tree for XML media types.
	XML *XMLNode

	// ParseErr records a body that did not parse as its declared media type.
	ParseErr error

	Elapsed  time.Duration
	Attempts int

	// Err is set when no HTTP response was obtained.
	Err *TransportError
}

// OK reports whether a response was received with a 2xx status.
func (r *Result) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// MediaType returns the lower-cased media type without parameters.
func (r *Result) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(r.ContentType, ";")[0]))
	}
	return mt
}

// IsJSON reports whether the response declares a JSON media type.
func (r *Result) IsJSON() bool {
	return spec.IsJSONMediaType(r.MediaType())
}

// IsXML reports whether the response declares an XML media type.
func (r *Result) IsXML() bool {
	return spec.IsXMLMediaType(r.MediaType())
}

// Object returns the JSON body as an object, or nil.
func (r *Result) Object() map[string]any {
	m, _ := r.JSON.(map[string]any)
	return m
}

func (r *Result) parse() {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return
	}
	switch {
	case r.IsJSON():
		dec := json.NewDecoder(bytes.NewReader(r.Body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			r.ParseErr = fmt.Errorf("decode json: %w", err)
			return
		}
		if dec.More() {
			r.ParseErr = errors.New("decode json: trailing data after value")
			return
		}
		r.JSON = v
	case r.IsXML():
		node, err := ParseXML(r.Body)
		if err != nil {
			r.ParseErr = err
			return
		}
		r.XML = node
	}
}

// TransportError reports that no HTTP response was obtained.
type TransportError struct {
	Attempts int
	Canceled bool
	Err      error
}

func (e *TransportError) Error() string {
	if e.Canceled {
		return fmt.Sprintf("request canceled after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport failure after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
