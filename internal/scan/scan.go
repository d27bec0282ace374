// Package scan sequences one accessibility audit: browser lifecycle,
// stability waits, the external checker with its retry schedule, the
// attribution and keyboard engines, and final result assembly. One
// Session per URL, one state machine per Session, no shared mutable
// state across sessions.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/attribute"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/browser"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/checker"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/framework"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/keyboard"
	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// Page is everything the orchestrator needs from a live browser
// session. *browser.Session implements it; tests use fakes.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Eval(ctx context.Context, js string, out any) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	ProbeNavigation(ctx context.Context, window time.Duration) (bool, error)
	PressKey(ctx context.Context, key string) error
	Title(ctx context.Context) (string, error)
	Close() error
}

// Collaborators are the external engines the state machine drives.
// Every field must be set; Default wires the production set.
type Collaborators struct {
	Launch   func(ctx context.Context, opts browser.Options) (Page, error)
	Check    func(ctx context.Context, pg Page, opts checker.Options) (*checker.Results, error)
	Detect   func(ctx context.Context, pg Page) (framework.Detection, error)
	Tree     func(ctx context.Context, pg Page) (*framework.TreeSnapshot, error)
	Locate   func(ctx context.Context, pg Page, targets []string) (map[string][]string, error)
	Keyboard func(ctx context.Context, pg Page, opts keyboard.Options) *keyboard.Report
}

// Default wires the real collaborators: chromedp sessions, the axe
// checker, the React tree provider, and the CDP keyboard pager.
func Default(axeSource string) Collaborators {
	axe := &checker.AxeChecker{Source: axeSource}
	provider := framework.ReactProvider{}
	return Collaborators{
		Launch: func(ctx context.Context, opts browser.Options) (Page, error) {
			return browser.Launch(ctx, opts)
		},
		Check: func(ctx context.Context, pg Page, opts checker.Options) (*checker.Results, error) {
			return axe.Run(ctx, pg, opts)
		},
		Detect: func(ctx context.Context, pg Page) (framework.Detection, error) {
			return framework.Detect(ctx, pg)
		},
		Tree: func(ctx context.Context, pg Page) (*framework.TreeSnapshot, error) {
			return provider.Scan(ctx, pg)
		},
		Locate: func(ctx context.Context, pg Page, targets []string) (map[string][]string, error) {
			return framework.LocateTargets(ctx, pg, targets)
		},
		Keyboard: func(ctx context.Context, pg Page, opts keyboard.Options) *keyboard.Report {
			return keyboard.Run(ctx, keyboard.NewCDPPager(pg), opts)
		},
	}
}

// Options holds the caller-tunable scan policy.
type Options struct {
	Browser browser.Options

	// MaxNavigationWaits bounds the stability loop. Exceeding it does
	// not fail the scan: single-page apps may never go fully idle.
	MaxNavigationWaits int
	// MaxRetries is the total attempt count for the checker call.
	MaxRetries int
	// RetryDelayBase is multiplied by the attempt number (linear
	// backoff) between checker attempts.
	RetryDelayBase time.Duration

	// Tags restricts the checker's rule set.
	Tags []string
	// RequireReact makes absence of a detected React runtime fatal.
	RequireReact bool
	// Keyboard enables the keyboard interaction audit.
	Keyboard     bool
	KeyboardOpts keyboard.Options
	// InternalPatterns overrides the attribution display filter.
	InternalPatterns []string
	// FailThreshold, when set, evaluates CI pass/fail against a
	// violation-count ceiling.
	FailThreshold *int
}

func (o Options) defaults() Options {
	o.Browser = o.Browser.Defaults()
	if o.MaxNavigationWaits <= 0 {
		o.MaxNavigationWaits = 3
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelayBase <= 0 {
		o.RetryDelayBase = 500 * time.Millisecond
	}
	return o
}

// Session owns one audit run over one URL. The browser session it
// acquires at Launching is released exactly once on every exit path.
// Not safe for concurrent use; batches run sessions sequentially.
type Session struct {
	ID  string
	URL string

	opts   Options
	collab Collaborators

	state        State
	navWaits     int
	attempts     int
	page         Page
	detection    framework.Detection
	degradations []string
}

func New(url string, opts Options, collab Collaborators) *Session {
	return &Session{
		ID:     uuid.NewString(),
		URL:    url,
		opts:   opts.defaults(),
		collab: collab,
		state:  StateIdle,
	}
}

// State exposes the machine's position, mainly for callers reporting
// where a failed scan died.
func (s *Session) State() State { return s.state }

// Run executes the state machine to a terminal state. The returned
// error is always a *ScanError; degraded-but-completed scans return a
// result and nil.
func (s *Session) Run(ctx context.Context) (res *result.ScanResult, err error) {
	defer func() {
		if s.page != nil {
			if cerr := s.page.Close(); cerr != nil {
				slog.Warn("browser close failed", "session", s.ID, "err", cerr)
			}
		}
	}()

	var checkRes *checker.Results
	for !s.state.Terminal() {
		if cancelErr := ctx.Err(); cancelErr != nil {
			return nil, s.fatal(ErrCancelled, cancelErr)
		}

		switch s.state {
		case StateIdle:
			slog.Info("scan starting", "session", s.ID, "url", s.URL, "engine", s.opts.Browser.Engine)
			s.to(StateLaunching)

		case StateLaunching:
			pg, lerr := s.collab.Launch(ctx, s.opts.Browser)
			if lerr != nil {
				return nil, s.fatal(ErrLaunch, lerr)
			}
			s.page = pg
			s.to(StateNavigating)

		case StateNavigating:
			if nerr := s.page.Navigate(ctx, s.URL, s.opts.Browser.NavTimeout); nerr != nil {
				return nil, s.fatal(ErrNavigation, nerr)
			}
			s.to(StateStabilizing)

		case StateStabilizing:
			if serr := s.stabilize(ctx); serr != nil {
				return nil, s.fatal(ErrCancelled, serr)
			}
			s.to(StateScanning)

		case StateScanning:
			det, derr := s.collab.Detect(ctx, s.page)
			if derr != nil {
				s.degrade("framework detection failed: " + derr.Error())
			} else {
				s.detection = det
			}
			if s.opts.RequireReact && s.detection.Framework != "react" {
				return nil, s.fatal(ErrFrameworkRequired,
					fmt.Errorf("react runtime not detected and --require-react is set"))
			}
			cr, cerr := s.checkWithRetry(ctx)
			if cerr != nil {
				return nil, cerr
			}
			checkRes = cr
			s.to(StateAttributing)

		case StateAttributing:
			res = s.assemble(ctx, checkRes)
			s.to(StateDone)
		}
	}

	slog.Info("scan complete", "session", s.ID, "url", s.URL,
		"violations", res.Summary.TotalViolations, "degradations", len(s.degradations))
	return res, nil
}

func (s *Session) to(next State) {
	slog.Debug("state transition", "session", s.ID, "from", s.state, "to", next)
	s.state = next
}

func (s *Session) fatal(kind ErrorKind, err error) error {
	s.state = StateError
	serr := &ScanError{Kind: kind, URL: s.URL, Engine: string(s.opts.Browser.Engine), Err: err}
	slog.Error("scan failed", "session", s.ID, "kind", kind, "err", err)
	return serr
}

func (s *Session) degrade(msg string) {
	slog.Warn("scan degraded", "session", s.ID, "reason", msg)
	s.degradations = append(s.degradations, msg)
}

// stabilize waits for the page to stop navigating: best-effort network
// idle, a settle pause, then a probe for one more navigation. Each
// observed navigation costs one wait from the budget; exhausting the
// budget records a degradation and proceeds.
func (s *Session) stabilize(ctx context.Context) error {
	for {
		if err := s.page.WaitNetworkIdle(ctx, s.opts.Browser.IdleTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("network idle wait timed out", "session", s.ID, "err", err)
		}
		if err := sleepCtx(ctx, s.opts.Browser.SettleDelay); err != nil {
			return err
		}
		fired, err := s.page.ProbeNavigation(ctx, s.opts.Browser.ProbeWindow)
		if err != nil {
			return err
		}
		if !fired {
			return nil
		}
		s.navWaits++
		if s.navWaits >= s.opts.MaxNavigationWaits {
			s.degrade(fmt.Sprintf("page still navigating after %d stability waits, proceeding anyway", s.navWaits))
			return nil
		}
	}
}

// checkWithRetry invokes the checker with linear backoff. The checker
// is idempotent and DOM-side-effect-free, so each retry re-runs it
// wholesale. Exhaustion converts to a fatal checker error. A missing
// axe source is a configuration problem and fails on the first attempt.
func (s *Session) checkWithRetry(ctx context.Context) (*checker.Results, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		s.attempts = attempt
		res, err := s.collab.Check(ctx, s.page, checker.Options{Tags: s.opts.Tags})
		if err == nil {
			if attempt > 1 {
				slog.Info("checker recovered", "session", s.ID, "attempt", attempt)
			}
			return res, nil
		}
		if errors.Is(err, checker.ErrNoSource) {
			return nil, s.fatal(ErrChecker, err)
		}
		lastErr = err
		slog.Warn("checker attempt failed", "session", s.ID,
			"attempt", attempt, "max", s.opts.MaxRetries, "err", err)
		if attempt < s.opts.MaxRetries {
			if serr := sleepCtx(ctx, time.Duration(attempt)*s.opts.RetryDelayBase); serr != nil {
				return nil, s.fatal(ErrCancelled, serr)
			}
		}
	}
	return nil, s.fatal(ErrChecker,
		fmt.Errorf("checker failed after %d attempts: %w", s.opts.MaxRetries, lastErr))
}

// assemble merges attribution, keyboard results, and the CI evaluation
// into the final ScanResult. Attribution problems degrade to no
// component data; they never fail the scan.
func (s *Session) assemble(ctx context.Context, cr *checker.Results) *result.ScanResult {
	res := &result.ScanResult{
		URL:       s.URL,
		Engine:    string(s.opts.Browser.Engine),
		Timestamp: time.Now().UTC(),
	}
	if title, err := s.page.Title(ctx); err == nil {
		res.Title = title
	}
	if s.detection.Framework != "" {
		res.Framework = &result.FrameworkInfo{
			Name:       s.detection.Framework,
			Version:    s.detection.Version,
			Confidence: s.detection.Confidence,
		}
	}

	res.Findings = s.attributeFindings(ctx, cr.Violations)
	res.PassCount = len(cr.Passes)
	res.IncompleteCnt = len(cr.Incomplete)

	var kbIssues []result.KeyboardIssue
	if s.opts.Keyboard && s.collab.Keyboard != nil {
		rep := s.collab.Keyboard(ctx, s.page, s.opts.KeyboardOpts)
		res.TabOrder = rep.TabOrder
		res.KeyboardIssues = rep.Issues
		kbIssues = rep.Issues
		for _, procErr := range rep.Errors {
			s.degrade("keyboard: " + procErr)
		}
	}

	res.Summary = result.Summarize(res.Findings, kbIssues)
	if s.opts.FailThreshold != nil {
		res.CI = &result.CIResult{
			Threshold:  *s.opts.FailThreshold,
			Violations: res.Summary.TotalViolations,
			Passed:     res.Summary.TotalViolations <= *s.opts.FailThreshold,
		}
	}
	res.Degradations = s.degradations
	return res
}

func (s *Session) attributeFindings(ctx context.Context, violations []result.Finding) []result.AttributedFinding {
	if s.detection.Framework != "react" || s.collab.Tree == nil {
		return attribute.Passthrough(violations)
	}
	snap, err := s.collab.Tree(ctx, s.page)
	if err != nil {
		s.degrade("component tree scan failed: " + err.Error())
		return attribute.Passthrough(violations)
	}

	var targets []string
	seen := make(map[string]bool)
	for _, f := range violations {
		for _, inst := range f.Instances {
			if !seen[inst.Target] {
				seen[inst.Target] = true
				targets = append(targets, inst.Target)
			}
		}
	}
	locate, err := s.collab.Locate(ctx, s.page, targets)
	if err != nil {
		s.degrade("target location failed: " + err.Error())
		locate = nil
	}

	return attribute.New(snap, s.opts.InternalPatterns).Attribute(violations, locate)
}

// RunBatch scans URLs strictly sequentially, one fresh session per URL.
// Browser instances are never shared across URLs. Fatal errors are
// collected per URL; successfully degraded scans still produce results.
func RunBatch(ctx context.Context, urls []string, opts Options, collab Collaborators) ([]*result.ScanResult, []error) {
	var results []*result.ScanResult
	var errs []error
	for _, url := range urls {
		res, err := New(url, opts, collab).Run(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
