// Package config holds the run configuration: an optional YAML file
// overlaid by command-line flags, with defaults for the public documents
// search API.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite names accepted by Config.Suite.
const (
	SuiteBehavioral = "behavioral"
	SuiteOpenAPI    = "openapi"
	SuiteAll        = "all"
)

// Strategies accepted by Config.Strategies.
var knownStrategies = []string{"valid", "boundary", "invalid"}

// Config is the complete run configuration.
type Config struct {
	BaseURL string `yaml:"base_url"`

	// Spec is the description document path or URL. Required for the
	// openapi suite.
	Spec string `yaml:"spec"`

	Suite      string   `yaml:"suite"`
	Categories []string `yaml:"categories"`
	Strategies []string `yaml:"strategies"`

	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
	Retries     int           `yaml:"retries"`
	Backoff     time.Duration `yaml:"backoff"`
	UserAgent   string        `yaml:"user_agent"`

	// History is the SQLite run-history path; empty disables persistence.
	History string `yaml:"history"`

	Behavioral Behavioral `yaml:"behavioral"`
	DateRange  DateRange  `yaml:"date_range"`
}

// DateRange names the start/end query parameters used for inverted-range
// probes.
type DateRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Behavioral describes the document-search endpoint exercised by the
// behavioral suite.
type Behavioral struct {
	Endpoint   string `yaml:"endpoint"`
	HealthPath string `yaml:"health_path"`

	// HealthStatus is the expected "status" value of the health endpoint.
	HealthStatus string `yaml:"health_status"`

	// DocumentsField holds the result set; IDField names a document's id.
	DocumentsField string   `yaml:"documents_field"`
	IDField        string   `yaml:"id_field"`
	TotalField     string   `yaml:"total_field"`
	IgnoreKeys     []string `yaml:"ignore_keys"`

	// Ordered makes repeated result sets compare in document order. Only
	// array result sets carry an order.
	Ordered bool `yaml:"ordered"`

	MaxRows        int      `yaml:"max_rows"`
	RequiredFields []string `yaml:"required_fields"`

	Params  Params  `yaml:"params"`
	Fields  Fields  `yaml:"fields"`
	Samples Samples `yaml:"samples"`

	Checks []Check `yaml:"checks"`
}

// Params maps logical parameters to the query names the service uses.
type Params struct {
	Query     string `yaml:"query"`
	Country   string `yaml:"country"`
	Language  string `yaml:"language"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Format    string `yaml:"format"`
	Offset    string `yaml:"offset"`
	Rows      string `yaml:"rows"`
	Fields    string `yaml:"fields"`
}

// Fields maps logical document attributes to response field names.
type Fields struct {
	Title    string `yaml:"title"`
	Country  string `yaml:"country"`
	Language string `yaml:"language"`
	Date     string `yaml:"date"`
}

// Samples are the values used by filtering and consistency cases.
type Samples struct {
	Query     string `yaml:"query"`
	Country   string `yaml:"country"`
	Language  string `yaml:"language"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// Check is a user-defined expression evaluated against one response.
type Check struct {
	Name  string            `yaml:"name"`
	Expr  string            `yaml:"expr"`
	Query map[string]string `yaml:"query"`
}

// Default returns the configuration for the public documents search API.
func Default() *Config {
	return &Config{
		Suite:       SuiteAll,
		Strategies:  slices.Clone(knownStrategies),
		Concurrency: 4,
		Timeout:     30 * time.Second,
		RunTimeout:  10 * time.Minute,
		Retries:     2,
		Backoff:     500 * time.Millisecond,
		DateRange:   DateRange{Start: "strdate", End: "enddate"},
		Behavioral: Behavioral{
			Endpoint:       "/wds",
			HealthPath:     "/health",
			HealthStatus:   "healthy",
			DocumentsField: "documents",
			IDField:        "id",
			TotalField:     "total",
			IgnoreKeys:     []string{"facets"},
			MaxRows:        100,
			RequiredFields: []string{"rows", "os", "page", "total", "documents"},
			Params: Params{
				Query:     "qterm",
				Country:   "count_exact",
				Language:  "lang_exact",
				StartDate: "strdate",
				EndDate:   "enddate",
				Format:    "format",
				Offset:    "os",
				Rows:      "rows",
				Fields:    "fl",
			},
			Fields: Fields{
				Title:    "title",
				Country:  "count",
				Language: "lang",
				Date:     "docdt",
			},
			Samples: Samples{
				Query:     "energy",
				Country:   "Brazil",
				Language:  "English",
				StartDate: "2020-01-01",
				EndDate:   "2023-12-31",
			},
		},
	}
}

// Load reads a YAML configuration file on top of Default. Unknown keys are
// rejected so typos surface immediately. Relative spec and history paths
// resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	base := filepath.Dir(path)
	cfg.Spec = resolvePath(base, cfg.Spec)
	cfg.History = resolvePath(base, cfg.History)
	return cfg, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(base, p)
}

// Suites expands Suite into the suites to run, in report order.
func (c *Config) Suites() []string {
	if c.Suite == SuiteAll {
		return []string{SuiteBehavioral, SuiteOpenAPI}
	}
	return []string{c.Suite}
}

// WantsCategory reports whether category passes the category filter.
func (c *Config) WantsCategory(category string) bool {
	return len(c.Categories) == 0 || slices.Contains(c.Categories, category)
}

// Validate checks the configuration for a run.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL))
	}

	switch c.Suite {
	case SuiteBehavioral:
	case SuiteOpenAPI, SuiteAll:
		if c.Spec == "" {
			errs = append(errs, fmt.Errorf("spec is required for suite %q", c.Suite))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown suite %q (want behavioral, openapi or all)", c.Suite))
	}

	for _, s := range c.Strategies {
		if !slices.Contains(knownStrategies, s) {
			errs = append(errs, fmt.Errorf("unknown strategy %q", s))
		}
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.RunTimeout < 0 {
		errs = append(errs, errors.New("run_timeout must not be negative"))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}

	if c.Suite != SuiteOpenAPI {
		errs = append(errs, c.Behavioral.validate()...)
	}
	return errors.Join(errs...)
}

func (b *Behavioral) validate() []error {
	var errs []error
	required := map[string]string{
		"behavioral.endpoint":        b.Endpoint,
		"behavioral.documents_field": b.DocumentsField,
		"behavioral.id_field":        b.IDField,
		"behavioral.params.rows":     b.Params.Rows,
		"behavioral.params.offset":   b.Params.Offset,
		"behavioral.params.format":   b.Params.Format,
	}
	keys := make([]string, 0, len(required))
	for k := range required {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if required[k] == "" {
			errs = append(errs, fmt.Errorf("%s is required", k))
		}
	}
	if b.MaxRows < 1 {
		errs = append(errs, fmt.Errorf("behavioral.max_rows must be at least 1, got %d", b.MaxRows))
	}
	for i, c := range b.Checks {
		if c.Name == "" || c.Expr == "" {
			errs = append(errs, fmt.Errorf("behavioral.checks[%d] needs name and expr", i))
		}
	}
	return errs
}
