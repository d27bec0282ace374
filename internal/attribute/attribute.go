// Package attribute resolves raw defect locations to the most specific
// owning UI component. It works entirely on a one-shot component-tree
// snapshot: no live DOM access, no mutation paths back into the page.
package attribute

import (
	"strings"

	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/framework"
	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// DefaultInternalPatterns are the framework wrapper names filtered out
// of the display path. Matching is exact or by suffix, so "AppRouter"
// falls to "Router".
var DefaultInternalPatterns = []string{
	"Router", "Route", "Provider", "Context", "Fragment",
	"Suspense", "StrictMode", "ErrorBoundary", "Boundary", "Portal",
}

// minNameLength is the minification heuristic: names this short are
// assumed to be build artifacts, not author-visible components.
const minNameLength = 3

type node struct {
	name     string
	kind     string
	path     []string // root-to-node, named ancestors only
	internal bool
}

// Engine answers nearest-enclosing-owner queries over one snapshot.
// Built once per scan; read-only afterward.
type Engine struct {
	byElem         map[int]*node // DomComponentMap: element id → owning node
	elemParent     map[int]int
	elemBySelector map[string]int
	patterns       []string
}

// New flattens the snapshot and builds the element index. Patterns nil
// means DefaultInternalPatterns.
func New(snap *framework.TreeSnapshot, patterns []string) *Engine {
	if patterns == nil {
		patterns = DefaultInternalPatterns
	}
	e := &Engine{
		byElem:         make(map[int]*node),
		elemParent:     make(map[int]int),
		elemBySelector: make(map[string]int),
		patterns:       patterns,
	}
	for _, el := range snap.Elements {
		e.elemParent[el.ID] = el.Parent
		e.elemBySelector[el.Selector] = el.ID
	}
	if snap.Root >= 0 {
		e.flatten(snap, snap.Root, nil)
	}
	return e
}

// flatten is the depth-first pre-order walk: each named node is recorded
// with its root-to-node path before descending, then the walk dives into
// the child link and finally the original node's sibling link. Anonymous
// and underscore-prefixed nodes are skipped but traversed through.
func (e *Engine) flatten(snap *framework.TreeSnapshot, idx int, path []string) {
	for idx != -1 {
		tn := snap.Nodes[idx]
		childPath := path

		if named(tn.Name) {
			p := make([]string, len(path), len(path)+1)
			copy(p, path)
			p = append(p, tn.Name)
			n := &node{
				name:     tn.Name,
				kind:     tn.Kind,
				path:     p,
				internal: e.isInternal(tn.Name),
			}
			// First writer wins: the walk reaches each element once,
			// and the outermost owner is the most specific recorded.
			if tn.ElemID != 0 {
				if _, taken := e.byElem[tn.ElemID]; !taken {
					e.byElem[tn.ElemID] = n
				}
			}
			childPath = p
		}

		if tn.Child != -1 {
			e.flatten(snap, tn.Child, childPath)
		}
		idx = tn.Sibling
	}
}

func named(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

func (e *Engine) isInternal(name string) bool {
	if len(name) < minNameLength {
		return true
	}
	for _, p := range e.patterns {
		if name == p || strings.HasSuffix(name, p) {
			return true
		}
	}
	return false
}

// FilterPath removes framework-internal names from an ownership path.
// Display-only: callers keep the raw path for full fidelity.
func (e *Engine) FilterPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, name := range path {
		if !e.isInternal(name) {
			out = append(out, name)
		}
	}
	return out
}

func (e *Engine) ref(n *node) *result.ComponentRef {
	return &result.ComponentRef{
		Name:     n.name,
		Kind:     n.kind,
		Path:     n.path,
		UserPath: e.FilterPath(n.path),
	}
}

// Resolve finds the owning component for an element id by direct map
// membership, then by walking the physical DOM parent chain. Nil when
// no mapped ancestor exists.
func (e *Engine) Resolve(elemID int) *result.ComponentRef {
	for id := elemID; id != 0; {
		if n, ok := e.byElem[id]; ok {
			return e.ref(n)
		}
		parent, ok := e.elemParent[id]
		if !ok {
			break
		}
		id = parent
	}
	return nil
}

// ResolveChain resolves the first selector of the ancestor chain that
// the snapshot tracks, then falls through to the parent-chain walk.
// The chain is self-first, so untracked wrapper elements are stepped
// over exactly like untracked parents.
func (e *Engine) ResolveChain(chain []string) *result.ComponentRef {
	for _, sel := range chain {
		if id, ok := e.elemBySelector[sel]; ok {
			return e.Resolve(id)
		}
	}
	return nil
}

// Attribute resolves every instance of every finding. locate maps a raw
// checker target to its canonical ancestor selector chain; targets
// absent from locate stay unresolved. Instance counts are preserved
// exactly: nothing is dropped, nothing is duplicated.
func (e *Engine) Attribute(findings []result.Finding, locate map[string][]string) []result.AttributedFinding {
	out := make([]result.AttributedFinding, 0, len(findings))
	for _, f := range findings {
		af := result.AttributedFinding{
			ID:          f.ID,
			Impact:      f.Impact,
			Description: f.Description,
			Help:        f.Help,
			HelpURL:     f.HelpURL,
			Tags:        f.Tags,
			Instances:   make([]result.AttributedInstance, 0, len(f.Instances)),
		}
		for _, inst := range f.Instances {
			ai := result.AttributedInstance{Instance: inst}
			if chain, ok := locate[inst.Target]; ok {
				ai.Component = e.ResolveChain(chain)
			} else if id, ok := e.elemBySelector[inst.Target]; ok {
				ai.Component = e.Resolve(id)
			}
			af.Instances = append(af.Instances, ai)
		}
		out = append(out, af)
	}
	return out
}

// Passthrough converts findings without any component data, used when
// no tree provider is configured or the provider failed. Attribution
// degrades; the scan continues.
func Passthrough(findings []result.Finding) []result.AttributedFinding {
	out := make([]result.AttributedFinding, 0, len(findings))
	for _, f := range findings {
		af := result.AttributedFinding{
			ID:          f.ID,
			Impact:      f.Impact,
			Description: f.Description,
			Help:        f.Help,
			HelpURL:     f.HelpURL,
			Tags:        f.Tags,
			Instances:   make([]result.AttributedInstance, 0, len(f.Instances)),
		}
		for _, inst := range f.Instances {
			af.Instances = append(af.Instances, result.AttributedInstance{Instance: inst})
		}
		out = append(out, af)
	}
	return out
}
