package attribute

import (
	"reflect"
	"testing"

	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/framework"
	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// snapshot fixture:
//
//	App (composite)
//	└─ AppRouter (composite)
//	   └─ div#root (host, elem 1)
//	      ├─ Header (composite, elem 2)
//	      │  └─ _anon
//	      │     └─ Button (composite, elem 3)
//	      └─ Footer (composite, elem 5)
//
// DOM: 1 > 2 > 3 > 4 (untracked span) and 1 > 5.
func fixture() *framework.TreeSnapshot {
	return &framework.TreeSnapshot{
		Root: 0,
		Nodes: []framework.TreeNode{
			{Name: "App", Kind: "composite", Child: 1, Sibling: -1},            // 0
			{Name: "AppRouter", Kind: "composite", Child: 2, Sibling: -1},      // 1
			{Name: "div", Kind: "host", Child: 3, Sibling: -1, ElemID: 1},      // 2
			{Name: "Header", Kind: "composite", Child: 4, Sibling: 6, ElemID: 2}, // 3
			{Name: "_anon", Kind: "composite", Child: 5, Sibling: -1},          // 4
			{Name: "Button", Kind: "composite", Child: -1, Sibling: -1, ElemID: 3}, // 5
			{Name: "Footer", Kind: "composite", Child: -1, Sibling: -1, ElemID: 5}, // 6
		},
		Elements: []framework.ElementRef{
			{ID: 1, Parent: 0, Selector: "div#root"},
			{ID: 2, Parent: 1, Selector: "div#root > header"},
			{ID: 3, Parent: 2, Selector: "div#root > header > button"},
			{ID: 4, Parent: 3, Selector: "div#root > header > button > span"},
			{ID: 5, Parent: 1, Selector: "div#root > footer"},
		},
	}
}

func TestFlattenPaths(t *testing.T) {
	e := New(fixture(), nil)

	ref := e.Resolve(3)
	if ref == nil {
		t.Fatal("Button element unresolved")
	}
	if ref.Name != "Button" {
		t.Errorf("name = %q, want Button", ref.Name)
	}
	// Anonymous node is traversed through but never appears in the path.
	wantPath := []string{"App", "AppRouter", "div", "Header", "Button"}
	if !reflect.DeepEqual(ref.Path, wantPath) {
		t.Errorf("path = %v, want %v", ref.Path, wantPath)
	}
}

func TestNearestOwner(t *testing.T) {
	// Element 4 (span) is rendered but not tracked by any component;
	// its nearest mapped ancestor is the Button (elem 3), not null and
	// not anything deeper.
	e := New(fixture(), nil)
	ref := e.Resolve(4)
	if ref == nil {
		t.Fatal("expected nearest-ancestor resolution, got nil")
	}
	if ref.Name != "Button" {
		t.Errorf("nearest owner = %q, want Button", ref.Name)
	}
}

func TestNearestOwnerSkipsMiddle(t *testing.T) {
	// A > B > C where only A and C are mapped: resolving B yields A.
	snap := &framework.TreeSnapshot{
		Root: 0,
		Nodes: []framework.TreeNode{
			{Name: "Alpha", Kind: "composite", Child: 1, Sibling: -1, ElemID: 1},
			{Name: "Gamma", Kind: "composite", Child: -1, Sibling: -1, ElemID: 3},
		},
		Elements: []framework.ElementRef{
			{ID: 1, Parent: 0, Selector: "div.a"},
			{ID: 2, Parent: 1, Selector: "div.a > div.b"},
			{ID: 3, Parent: 2, Selector: "div.a > div.b > div.c"},
		},
	}
	e := New(snap, nil)
	ref := e.Resolve(2)
	if ref == nil {
		t.Fatal("expected Alpha, got nil")
	}
	if ref.Name != "Alpha" {
		t.Errorf("owner of middle element = %q, want Alpha", ref.Name)
	}
}

func TestResolveUnmapped(t *testing.T) {
	e := New(fixture(), nil)
	if ref := e.Resolve(99); ref != nil {
		t.Errorf("unknown element resolved to %+v, want nil", ref)
	}
}

func TestFilterPathDeterminism(t *testing.T) {
	e := New(fixture(), []string{"AppRouter"})
	got := e.FilterPath([]string{"AppRouter", "Header", "Button"})
	want := []string{"Header", "Button"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterPath = %v, want %v", got, want)
	}
}

func TestFilterPathMinificationHeuristic(t *testing.T) {
	e := New(fixture(), []string{})
	got := e.FilterPath([]string{"t", "Header", "ab", "Button"})
	want := []string{"Header", "Button"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterPath = %v, want %v", got, want)
	}
}

func TestAttributeCompleteness(t *testing.T) {
	e := New(fixture(), nil)
	findings := []result.Finding{
		{
			ID:     "image-alt",
			Impact: result.ImpactCritical,
			Instances: []result.Instance{
				{Target: "div#root > header > button"},
				{Target: "span.untracked"},
				{Target: "nowhere"},
			},
		},
		{
			ID:        "label",
			Impact:    result.ImpactCritical,
			Instances: []result.Instance{{Target: "div#root > footer"}},
		},
	}
	locate := map[string][]string{
		"span.untracked": {"span.untracked", "div#root > header > button", "div#root > header"},
	}

	attributed := e.Attribute(findings, locate)

	if len(attributed) != len(findings) {
		t.Fatalf("finding count changed: %d -> %d", len(findings), len(attributed))
	}
	for i := range findings {
		if len(attributed[i].Instances) != len(findings[i].Instances) {
			t.Errorf("finding %s: instance count %d, want %d",
				findings[i].ID, len(attributed[i].Instances), len(findings[i].Instances))
		}
	}

	// Direct selector hit.
	if c := attributed[0].Instances[0].Component; c == nil || c.Name != "Button" {
		t.Errorf("direct hit = %+v, want Button", attributed[0].Instances[0].Component)
	}
	// Chain hit through an untracked element.
	if c := attributed[0].Instances[1].Component; c == nil || c.Name != "Button" {
		t.Errorf("chain hit = %+v, want Button", attributed[0].Instances[1].Component)
	}
	// Unresolvable: instance preserved, component nil.
	if c := attributed[0].Instances[2].Component; c != nil {
		t.Errorf("unresolvable target got component %+v", c)
	}
	if attributed[0].Instances[2].Target != "nowhere" {
		t.Error("unresolved instance lost its target")
	}
	if c := attributed[1].Instances[0].Component; c == nil || c.Name != "Footer" {
		t.Errorf("footer = %+v", c)
	}
}

func TestPassthrough(t *testing.T) {
	findings := []result.Finding{
		{ID: "x", Instances: []result.Instance{{Target: "a"}, {Target: "b"}}},
	}
	out := Passthrough(findings)
	if len(out) != 1 || len(out[0].Instances) != 2 {
		t.Fatalf("passthrough reshaped findings: %+v", out)
	}
	for _, inst := range out[0].Instances {
		if inst.Component != nil {
			t.Error("passthrough must not invent components")
		}
	}
}

func TestFirstWriterWins(t *testing.T) {
	// Two nodes claiming the same element: the first visited keeps it.
	snap := &framework.TreeSnapshot{
		Root: 0,
		Nodes: []framework.TreeNode{
			{Name: "Outer", Kind: "composite", Child: 1, Sibling: -1, ElemID: 1},
			{Name: "Inner", Kind: "composite", Child: -1, Sibling: -1, ElemID: 1},
		},
		Elements: []framework.ElementRef{{ID: 1, Parent: 0, Selector: "div"}},
	}
	e := New(snap, nil)
	if ref := e.Resolve(1); ref == nil || ref.Name != "Outer" {
		t.Errorf("owner = %+v, want Outer", ref)
	}
}
