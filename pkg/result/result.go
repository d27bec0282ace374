// Package result holds the data model shared by the scan engine and any
// downstream reporting layer. Everything here is plain data: values are
// built once by the scanner and read-only afterward.
package result

import "time"

// Impact is the severity scale used for both checker findings and
// keyboard issues. It mirrors the axe-core impact levels.
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSerious  Impact = "serious"
	ImpactCritical Impact = "critical"
)

// Finding is one checker-reported defect, exactly as the accessibility
// checker produced it. Immutable input to attribution.
type Finding struct {
	ID          string     `json:"id"`
	Impact      Impact     `json:"impact"`
	Description string     `json:"description"`
	Help        string     `json:"help,omitempty"`
	HelpURL     string     `json:"helpUrl,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Instances   []Instance `json:"instances"`
}

// Instance is one concrete location of a finding on the page.
type Instance struct {
	Target  string `json:"target"`
	HTML    string `json:"html,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// ComponentRef identifies the UI component that owns a rendered element.
// Path is the full root-to-node ownership chain; UserPath is the same
// chain with framework-internal wrappers filtered out for display.
type ComponentRef struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"` // "host" or "composite"
	Path     []string `json:"componentPath"`
	UserPath []string `json:"userComponentPath"`
}

// AttributedInstance is an Instance resolved to its owning component.
// Component is nil when no owner was found; the instance itself is
// always preserved.
type AttributedInstance struct {
	Instance
	Component *ComponentRef `json:"component,omitempty"`
}

// AttributedFinding is a Finding whose instances have been resolved to
// components. Instance count always equals the raw finding's.
type AttributedFinding struct {
	ID          string               `json:"id"`
	Impact      Impact               `json:"impact"`
	Description string               `json:"description"`
	Help        string               `json:"help,omitempty"`
	HelpURL     string               `json:"helpUrl,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Instances   []AttributedInstance `json:"instances"`
}

// TabOrderEntry records one stop of the keyboard tab-order walk, in
// traversal order.
type TabOrderEntry struct {
	Index             int    `json:"index"`
	Selector          string `json:"selector"`
	Role              string `json:"role,omitempty"`
	HasFocusIndicator bool   `json:"hasFocusIndicator"`
}

// IssueType classifies a keyboard behavioral defect.
type IssueType string

const (
	IssueFocusTrap            IssueType = "focus-trap"
	IssueNoFocusIndicator     IssueType = "no-focus-indicator"
	IssueTabOrderViolation    IssueType = "tab-order-violation"
	IssueKeyboardInaccessible IssueType = "keyboard-inaccessible"
	IssueSkipLinkBroken       IssueType = "skip-link-broken"
	IssueShortcutConflict     IssueType = "shortcut-conflict"
)

// KeyboardIssue is one classified keyboard defect with the WCAG criteria
// it maps to.
type KeyboardIssue struct {
	Type     IssueType `json:"type"`
	Severity Impact    `json:"severity"`
	Selector string    `json:"selector,omitempty"`
	Detail   string    `json:"detail"`
	WCAG     []string  `json:"wcag,omitempty"`
}

// FrameworkInfo is the advisory framework-detection result.
type FrameworkInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Confidence int    `json:"confidence"`
}

// CIResult is the pass/fail evaluation against a caller-supplied
// violation ceiling.
type CIResult struct {
	Threshold  int  `json:"threshold"`
	Violations int  `json:"violations"`
	Passed     bool `json:"passed"`
}

// ScanResult is the terminal artifact of one scan session. Immutable
// once produced; owned by the caller.
type ScanResult struct {
	URL            string              `json:"url"`
	Title          string              `json:"title,omitempty"`
	Engine         string              `json:"engine"`
	Timestamp      time.Time           `json:"timestamp"`
	Framework      *FrameworkInfo      `json:"framework,omitempty"`
	Findings       []AttributedFinding `json:"findings"`
	PassCount      int                 `json:"passCount"`
	IncompleteCnt  int                 `json:"incompleteCount"`
	TabOrder       []TabOrderEntry     `json:"tabOrder,omitempty"`
	KeyboardIssues []KeyboardIssue     `json:"keyboardIssues,omitempty"`
	Summary        Summary             `json:"summary"`
	CI             *CIResult           `json:"ci,omitempty"`

	// Degradations lists non-fatal problems hit during the scan
	// (provider errors, stability budget overruns). Best effort.
	Degradations []string `json:"degradations,omitempty"`
}
