// Package keyboard exercises a live page's keyboard-only interaction
// surface and classifies behavioral defects the static checker cannot
// see. Five sub-procedures run in fixed order; a failure in one is
// recorded and the rest still run.
package keyboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// FocusInfo describes the currently focused element.
type FocusInfo struct {
	Selector     string `json:"selector"`
	Role         string `json:"role"`
	HasIndicator bool   `json:"hasIndicator"`
}

// SkipLinkProbe is the outcome of looking for a skip-to-content
// mechanism.
type SkipLinkProbe struct {
	Present      bool `json:"present"`
	TargetExists bool `json:"targetExists"`
	MovesFocus   bool `json:"movesFocus"`
}

// TrapProbe describes one visible modal/menu-like widget and whether
// focus is currently confined to it.
type TrapProbe struct {
	Selector string `json:"selector"`
	Role     string `json:"role"`
	Trapped  bool   `json:"trapped"`
}

// Widget is one custom interactive-role element and its observed
// keyboard affordances.
type Widget struct {
	Selector          string `json:"selector"`
	Role              string `json:"role"`
	HasTabStop        bool   `json:"hasTabStop"`
	HasKeyHandler     bool   `json:"hasKeyHandler"`
	HasPointerHandler bool   `json:"hasPointerHandler"`
}

// Pager is the interaction surface the engine drives. Implemented over
// CDP for real scans and by fakes in tests.
type Pager interface {
	ResetFocus(ctx context.Context) error
	AdvanceFocus(ctx context.Context) error
	ActiveElement(ctx context.Context) (FocusInfo, error)
	SkipLink(ctx context.Context) (SkipLinkProbe, error)
	VisibleTraps(ctx context.Context) ([]TrapProbe, error)
	CustomWidgets(ctx context.Context) ([]Widget, error)
}

// Options tunes the engine's policy constants.
type Options struct {
	// MaxTabPresses bounds the tab-order walk.
	MaxTabPresses int
	// TrapRepeatThreshold is the number of consecutive identical
	// focus observations treated as a trap. A heuristic: it tolerates
	// transient re-renders but can misread a slow widget, so it is
	// policy, not a correctness constant.
	TrapRepeatThreshold int
	// MinCycleEntries is how many entries must exist before a return
	// to the first selector counts as a closed loop.
	MinCycleEntries int
}

func (o Options) defaults() Options {
	if o.MaxTabPresses <= 0 {
		o.MaxTabPresses = 100
	}
	if o.TrapRepeatThreshold <= 0 {
		o.TrapRepeatThreshold = 3
	}
	if o.MinCycleEntries <= 0 {
		o.MinCycleEntries = 3
	}
	return o
}

// Report is the engine's output: the tab order as observed plus every
// classified issue, severity-bucketed by the caller via result.Summarize.
type Report struct {
	TabOrder []result.TabOrderEntry
	Issues   []result.KeyboardIssue
	// Errors lists sub-procedures that failed; best effort, non-fatal.
	Errors []string
}

// Run executes the five sub-procedures in their fixed order. The tab
// order walk feeds the focus-indicator audit; everything else is
// independent. Never returns a non-nil error for sub-procedure
// failures — those land in Report.Errors.
func Run(ctx context.Context, pg Pager, opts Options) *Report {
	opts = opts.defaults()
	r := &Report{}

	r.walkTabOrder(ctx, pg, opts)
	r.auditFocusIndicators()
	r.auditSkipLink(ctx, pg)
	r.revalidateTraps(ctx, pg)
	r.auditCustomWidgets(ctx, pg)

	slog.Info("keyboard audit complete",
		"tabStops", len(r.TabOrder), "issues", len(r.Issues), "errors", len(r.Errors))
	return r
}

// walkTabOrder repeatedly advances focus, recording each stop. It halts
// on the trap threshold (with an issue), on a closed loop back to the
// first stop (no issue), on the press budget, or on a page error.
func (r *Report) walkTabOrder(ctx context.Context, pg Pager, opts Options) {
	if err := pg.ResetFocus(ctx); err != nil {
		r.fail("tab-order", err)
		return
	}

	run := 0
	last := ""
	for i := 0; i < opts.MaxTabPresses; i++ {
		if err := pg.AdvanceFocus(ctx); err != nil {
			r.fail("tab-order", err)
			return
		}
		info, err := pg.ActiveElement(ctx)
		if err != nil {
			r.fail("tab-order", err)
			return
		}
		if info.Selector == "" {
			// Focus left the document (e.g. browser chrome); done.
			return
		}

		if info.Selector == last {
			run++
		} else {
			run = 1
			last = info.Selector
		}

		if run >= opts.TrapRepeatThreshold {
			r.TabOrder = append(r.TabOrder, result.TabOrderEntry{
				Index:             len(r.TabOrder),
				Selector:          info.Selector,
				Role:              info.Role,
				HasFocusIndicator: info.HasIndicator,
			})
			r.Issues = append(r.Issues, result.KeyboardIssue{
				Type:     result.IssueFocusTrap,
				Severity: result.ImpactCritical,
				Selector: info.Selector,
				Detail: fmt.Sprintf("focus stayed on %s for %d consecutive tab presses",
					info.Selector, run),
				WCAG: []string{"2.1.2"},
			})
			return
		}

		if len(r.TabOrder) >= opts.MinCycleEntries && info.Selector == r.TabOrder[0].Selector {
			// Full loop closed: the page's tab order is a cycle, which
			// is correct behavior. Stop without an issue.
			return
		}

		r.TabOrder = append(r.TabOrder, result.TabOrderEntry{
			Index:             len(r.TabOrder),
			Selector:          info.Selector,
			Role:              info.Role,
			HasFocusIndicator: info.HasIndicator,
		})
	}
}

// auditFocusIndicators is a pure pass over the recorded tab order.
func (r *Report) auditFocusIndicators() {
	for _, entry := range r.TabOrder {
		if entry.HasFocusIndicator {
			continue
		}
		r.Issues = append(r.Issues, result.KeyboardIssue{
			Type:     result.IssueNoFocusIndicator,
			Severity: result.ImpactSerious,
			Selector: entry.Selector,
			Detail:   "no visible focus indicator when focused via keyboard",
			WCAG:     []string{"2.4.7"},
		})
	}
}

func (r *Report) auditSkipLink(ctx context.Context, pg Pager) {
	probe, err := pg.SkipLink(ctx)
	if err != nil {
		r.fail("skip-link", err)
		return
	}
	switch {
	case !probe.Present:
		r.Issues = append(r.Issues, result.KeyboardIssue{
			Type:     result.IssueSkipLinkBroken,
			Severity: result.ImpactModerate,
			Detail:   "no skip-to-content link found",
			WCAG:     []string{"2.4.1"},
		})
	case !probe.TargetExists || !probe.MovesFocus:
		r.Issues = append(r.Issues, result.KeyboardIssue{
			Type:     result.IssueSkipLinkBroken,
			Severity: result.ImpactSerious,
			Detail:   "skip link present but activating it does not move focus to an existing target",
			WCAG:     []string{"2.4.1"},
		})
	}
}

// revalidateTraps probes visible modal/menu-like widgets independently
// of the tab walk. Traps inside genuine modal dialogs are required
// behavior and not reported.
func (r *Report) revalidateTraps(ctx context.Context, pg Pager) {
	traps, err := pg.VisibleTraps(ctx)
	if err != nil {
		r.fail("trap-revalidation", err)
		return
	}
	for _, t := range traps {
		if !t.Trapped || modalRoles[t.Role] {
			continue
		}
		r.Issues = append(r.Issues, result.KeyboardIssue{
			Type:     result.IssueFocusTrap,
			Severity: result.ImpactSerious,
			Selector: t.Selector,
			Detail:   fmt.Sprintf("focus confined to non-modal element (role %q)", t.Role),
			WCAG:     []string{"2.1.2"},
		})
	}
}

// auditCustomWidgets classifies keyboard support for every interactive
// ARIA role on a non-native element: full (tab stop + key handler),
// partial (one of the two), none (pointer-only).
func (r *Report) auditCustomWidgets(ctx context.Context, pg Pager) {
	widgets, err := pg.CustomWidgets(ctx)
	if err != nil {
		r.fail("custom-widgets", err)
		return
	}
	for _, w := range widgets {
		if !w.HasPointerHandler && !w.HasKeyHandler && !w.HasTabStop {
			// No tab stop, no key handler, no pointer handler: the
			// role is decorating static markup, not a control anyone
			// can operate by any means. Skipped rather than reported
			// as pointer-only. Like the trap repeat threshold this is
			// heuristic policy, not a correctness constant.
			continue
		}
		switch classifySupport(w) {
		case supportNone:
			r.Issues = append(r.Issues, result.KeyboardIssue{
				Type:     result.IssueKeyboardInaccessible,
				Severity: result.ImpactCritical,
				Selector: w.Selector,
				Detail:   fmt.Sprintf("custom %s is pointer-only: no tab stop and no keyboard handler", w.Role),
				WCAG:     []string{"2.1.1"},
			})
		case supportPartial:
			r.Issues = append(r.Issues, result.KeyboardIssue{
				Type:     result.IssueKeyboardInaccessible,
				Severity: result.ImpactSerious,
				Selector: w.Selector,
				Detail:   fmt.Sprintf("custom %s has partial keyboard support (tab stop: %v, key handler: %v)", w.Role, w.HasTabStop, w.HasKeyHandler),
				WCAG:     []string{"2.1.1"},
			})
		}
	}
}

type supportLevel int

const (
	supportNone supportLevel = iota
	supportPartial
	supportFull
)

func classifySupport(w Widget) supportLevel {
	switch {
	case w.HasTabStop && w.HasKeyHandler:
		return supportFull
	case w.HasTabStop || w.HasKeyHandler:
		return supportPartial
	default:
		return supportNone
	}
}

func (r *Report) fail(procedure string, err error) {
	slog.Warn("keyboard sub-procedure failed", "procedure", procedure, "err", err)
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", procedure, err))
}
