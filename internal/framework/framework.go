// Package framework detects the UI framework rendering a page and, when
// a plugin supports it, snapshots the page's component tree for
// attribution. The snapshot travels over one evaluate round-trip as an
// explicit request/response payload; nothing is assumed to persist in
// page globals across calls.
package framework

import "context"

// Page is the slice of the browser session this package needs.
type Page interface {
	Eval(ctx context.Context, js string, out any) error
}

// Detection is the advisory framework-detection result.
type Detection struct {
	Framework  string `json:"framework"`
	Version    string `json:"version,omitempty"`
	Confidence int    `json:"confidence"`
}

// TreeNode is one node of the snapshotted component tree. Child and
// Sibling are indexes into TreeSnapshot.Nodes (-1 = none), mirroring the
// first-child / next-sibling links frameworks expose internally.
type TreeNode struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // "host" or "composite"
	Child   int    `json:"child"`
	Sibling int    `json:"sibling"`
	ElemID  int    `json:"elem"` // rendered element id, 0 = none
}

// ElementRef is one rendered DOM element the tree references, as an
// ownership-only index entry: the host process never mutates the DOM
// through it. Parent 0 means the document root.
type ElementRef struct {
	ID       int    `json:"id"`
	Parent   int    `json:"parent"`
	Selector string `json:"selector"`
}

// TreeSnapshot is a one-shot, read-only snapshot of the component tree
// and the DOM elements it renders. Built fresh once per scan.
type TreeSnapshot struct {
	Root     int          `json:"root"`
	Nodes    []TreeNode   `json:"nodes"`
	Elements []ElementRef `json:"elements"`
}

// Provider is the optional component-tree collaborator. If Detect
// reports false or Scan errors, attribution degrades; the scan never
// fails on account of this interface.
type Provider interface {
	Detect(ctx context.Context, pg Page) (Detection, error)
	Scan(ctx context.Context, pg Page) (*TreeSnapshot, error)
}
