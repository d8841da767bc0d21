package spec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// maxDocumentSize bounds how much of a remote document is read.
const maxDocumentSize = 32 << 20

type options struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures Load.
type Option func(*options)

// WithHTTPClient sets the client used to fetch http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads, self-checks and resolves the description document at source,
// a file path or http(s) URL. All failures are *SpecLoadError.
func Load(ctx context.Context, source string, opts ...Option) (*InterfaceSpec, error) {
	o := options{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	data, err := read(ctx, o.client, source)
	if err != nil {
		return nil, err
	}

	root, err := Parse(source, data)
	if err != nil {
		return nil, err
	}
	if err := selfCheck(source, root); err != nil {
		return nil, err
	}

	s, err := build(source, root)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("spec loaded",
		"source", source,
		"version", s.Version,
		"operations", len(s.Operations),
		"components", len(s.Components),
		"elapsed", time.Since(start))
	return s, nil
}

// Parse decodes raw document bytes into a YAML node tree. CUE sources
// (".cue" suffix) are evaluated and exported to JSON first.
func Parse(source string, data []byte) (*yaml.Node, error) {
	if strings.EqualFold(filepath.Ext(trimQuery(source)), ".cue") {
		exported, err := exportCUE(source, data)
		if err != nil {
			return nil, err
		}
		data = exported
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "cannot decode document", Err: err}
	}
	if !isMapping(&root) {
		return nil, loadErr(ErrCodeMalformed, source, "#", "document root must be a mapping")
	}
	return &root, nil
}

func exportCUE(source string, data []byte) ([]byte, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(source))
	if err := v.Err(); err != nil {
		return nil, &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "cannot evaluate CUE document", Err: err}
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "cannot export CUE document", Err: err}
	}
	return out, nil
}

func read(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, &SpecLoadError{Code: ErrCodeUnreachable, Source: source, Message: "cannot read document", Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &SpecLoadError{Code: ErrCodeUnreachable, Source: source, Message: "invalid document URL", Err: err}
	}
	req.Header.Set("Accept", "application/yaml, application/json;q=0.9, */*;q=0.5")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &SpecLoadError{Code: ErrCodeUnreachable, Source: source, Message: "cannot fetch document", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, loadErr(ErrCodeUnreachable, source, "", "fetch returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, &SpecLoadError{Code: ErrCodeUnreachable, Source: source, Message: "cannot read document body", Err: fmt.Errorf("read: %w", err)}
	}
	return data, nil
}

func trimQuery(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		return source[:i]
	}
	return source
}
