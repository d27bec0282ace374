// Package checker defines the contract with the external accessibility
// rule engine and ships the axe-core transport glue. Rule evaluation
// itself (contrast math, ARIA validation) lives entirely on the page
// side inside axe; this package only injects, invokes, and decodes.
package checker

import (
	"context"

	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// Page is the slice of the browser session the checker needs.
type Page interface {
	Eval(ctx context.Context, js string, out any) error
}

// Options selects which rule sets run.
type Options struct {
	// Tags restricts the run to rules carrying any of these tags
	// (e.g. wcag2a, wcag2aa). Empty means the full default rule set.
	Tags []string
}

// Results is the checker's verdict over the current page state.
// Idempotent and side-effect-free against the DOM: running twice on an
// unchanged page yields equivalent results.
type Results struct {
	Violations   []result.Finding
	Passes       []result.Finding
	Incomplete   []result.Finding
	Inapplicable []result.Finding
}

// Checker is the external rule-engine collaborator.
type Checker interface {
	Run(ctx context.Context, pg Page, opts Options) (*Results, error)
}
