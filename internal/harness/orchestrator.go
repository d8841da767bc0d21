package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/apiparity/internal/cases"
	"github.com/roach88/apiparity/internal/config"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/spec"
	"github.com/roach88/apiparity/internal/structural"
)

// Reporter receives the finalized report. It is the only collaborator the
// orchestrator calls outside the core.
type Reporter interface {
	Report(ctx context.Context, r *ir.SuiteReport) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r *ir.SuiteReport) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, r *ir.SuiteReport) error {
	return f(ctx, r)
}

// Config selects the suite to run and carries the run configuration.
type Config struct {
	Suite ir.Suite
	Run   *config.Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the report clock. Default is the UTC wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithRunIDGenerator sets the run ID source. Default is UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *Orchestrator) { o.runIDs = g }
}

// WithReporter sets the collaborator handed the finalized report.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithHTTPClient sets the client used for the description document and
// for probes.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// OnTransition registers a hook called synchronously on every state
// change.
func OnTransition(fn func(from, to State)) Option {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, fn) }
}

// Orchestrator runs one suite once. It is not reusable: a second Run
// returns an error.
type Orchestrator struct {
	cfg      Config
	logger   *slog.Logger
	clock    Clock
	runIDs   RunIDGenerator
	reporter Reporter
	client   *http.Client
	hooks    []func(from, to State)

	mu    sync.Mutex
	state State

	// Set during Loading.
	spec    *spec.InterfaceSpec
	catalog []cases.TestCase
	checker *structural.Checker
}

// New creates an Orchestrator in the Idle state.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  systemClock{},
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()
	o.notify(from, to)
}

// start moves Idle to Loading atomically.
func (o *Orchestrator) start() error {
	o.mu.Lock()
	if o.state != StateIdle {
		s := o.state
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already ran (state %s)", s)
	}
	o.state = StateLoading
	o.mu.Unlock()
	o.notify(StateIdle, StateLoading)
	return nil
}

func (o *Orchestrator) notify(from, to State) {
	o.logger.Debug("state transition", "suite", o.cfg.Suite, "from", from, "to", to)
	for _, fn := range o.hooks {
		fn(from, to)
	}
}

// Run executes the suite and returns its finalized report.
//
// A load failure returns a nil report and the load error
// (a *spec.SpecLoadError for description documents). A reporter failure
// returns the report together with the error.
func (o *Orchestrator) Run(ctx context.Context) (*ir.SuiteReport, error) {
	if err := o.start(); err != nil {
		return nil, err
	}

	if err := o.load(ctx); err != nil {
		o.transition(StateErrored)
		o.logger.Error("run aborted", "suite", o.cfg.Suite, "error", err)
		return nil, err
	}

	o.transition(StateGenerating)
	source := ""
	if o.spec != nil {
		source = o.spec.Source
	}
	report := ir.NewSuiteReport(o.runIDs.NewRunID(), o.cfg.Suite, o.cfg.Run.BaseURL, source, o.clock.Now())
	jobs := o.generate(report)

	o.transition(StateExecuting)
	o.execute(ctx, jobs, report)

	o.transition(StateReporting)
	report.Finalize(o.clock.Now())
	s := report.Summary
	o.logger.Info("suite finished",
		"suite", o.cfg.Suite,
		"run_id", report.RunID,
		"passed", s.Passed,
		"failed", s.Failed,
		"errored", s.Errored,
		"skipped", s.Skipped,
	)

	var err error
	if o.reporter != nil {
		if rerr := o.reporter.Report(ctx, report); rerr != nil {
			err = fmt.Errorf("report %s suite: %w", o.cfg.Suite, rerr)
		}
	}
	o.transition(StateDone)
	return report, err
}

func (o *Orchestrator) load(ctx context.Context) error {
	switch o.cfg.Suite {
	case ir.SuiteOpenAPI:
		client := o.client
		if client == nil {
			client = &http.Client{Timeout: o.cfg.Run.Timeout}
		}
		s, err := spec.Load(ctx, o.cfg.Run.Spec, spec.WithLogger(o.logger), spec.WithHTTPClient(client))
		if err != nil {
			return err
		}
		o.spec = s
		o.checker = structural.New(s)
		return nil
	case ir.SuiteBehavioral:
		catalog, err := cases.Behavioral(o.cfg.Run)
		if err != nil {
			return fmt.Errorf("build behavioral catalog: %w", err)
		}
		o.catalog = catalog
		return nil
	}
	return fmt.Errorf("unknown suite %q", o.cfg.Suite)
}

// generate returns the cases to execute. For the openapi suite it also
// records the load verdict as the "spec" category's single outcome.
func (o *Orchestrator) generate(report *ir.SuiteReport) []cases.TestCase {
	run := o.cfg.Run
	if o.cfg.Suite == ir.SuiteBehavioral {
		var jobs []cases.TestCase
		for _, tc := range o.catalog {
			if run.WantsCategory(tc.Category) {
				jobs = append(jobs, tc)
			}
		}
		return jobs
	}

	if run.WantsCategory("spec") {
		msg := fmt.Sprintf("%s %s: %d operation(s), %d component schema(s)",
			o.spec.Title, o.spec.Version, len(o.spec.Operations), len(o.spec.Components))
		report.Add(ir.Pass(msg).For(ir.SuiteOpenAPI, "spec", "openapi/spec/load", "description document loads", 0))
	}

	gen := cases.New(cases.GeneratorConfig{DateStart: run.DateRange.Start, DateEnd: run.DateRange.End})
	var jobs []cases.TestCase
	for _, name := range run.Strategies {
		st, err := cases.ParseStrategy(name)
		if err != nil {
			o.logger.Warn("skipping strategy", "error", err)
			continue
		}
		for tc := range gen.Generate(o.spec, st) {
			if run.WantsCategory(tc.Category) {
				jobs = append(jobs, tc)
			}
		}
	}
	o.logger.Debug("generated cases", "suite", o.cfg.Suite, "count", len(jobs))
	return jobs
}

// collector serializes appends to the report.
type collector struct {
	mu     sync.Mutex
	report *ir.SuiteReport
}

func (c *collector) add(o ir.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Add(o)
}

func (o *Orchestrator) execute(ctx context.Context, jobs []cases.TestCase, report *ir.SuiteReport) {
	run := o.cfg.Run
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if run.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, run.RunTimeout)
	}
	defer cancel()

	p := probe.New(probe.Config{
		BaseURL:   run.BaseURL,
		Timeout:   run.Timeout,
		Retries:   run.Retries,
		Backoff:   run.Backoff,
		UserAgent: run.UserAgent,
		Client:    o.client,
	}, o.logger)

	col := &collector{report: report}
	workers := max(run.Concurrency, 1)
	queue := make(chan cases.TestCase)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tc := range queue {
				if runCtx.Err() != nil {
					col.add(skipped(tc))
					continue
				}
				col.add(o.runCase(runCtx, p, tc))
			}
		}()
	}

	for _, tc := range jobs {
		if runCtx.Err() != nil {
			col.add(skipped(tc))
			continue
		}
		select {
		case queue <- tc:
		case <-runCtx.Done():
			col.add(skipped(tc))
		}
	}
	close(queue)
	wg.Wait()

	if err := runCtx.Err(); err != nil {
		o.logger.Warn("run interrupted", "suite", o.cfg.Suite, "error", err)
	}
}

func skipped(tc cases.TestCase) ir.Outcome {
	return ir.Skipped("not started: run deadline exceeded or canceled").
		For(tc.Suite, tc.Category, tc.ID, tc.Label, tc.Seq)
}

// runCase issues the case's requests in order and evaluates them.
func (o *Orchestrator) runCase(ctx context.Context, p *probe.Probe, tc cases.TestCase) ir.Outcome {
	var (
		results []*probe.Result
		elapsed time.Duration
	)
	for _, req := range tc.Requests() {
		r := p.Execute(ctx, req)
		results = append(results, r)
		elapsed += r.Elapsed
	}

	var out ir.Outcome
	switch {
	case tc.Assert != nil:
		out = tc.Assert(results)
	case o.checker != nil:
		out = o.checker.Check(tc, results[0])
	default:
		out = ir.Errored(ir.KindAssertion, "case has no assertion")
	}
	out = out.For(tc.Suite, tc.Category, tc.ID, tc.Label, tc.Seq)
	out.Elapsed = elapsed

	o.logger.Debug("case finished", "case", tc.ID, "outcome", out.Status, "elapsed", elapsed)
	return out
}
