package framework

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// probePage answers each probe by substring match against its hits.
type probePage struct {
	hits    []string // substrings of probes that evaluate true
	version string
	tree    string
}

func (p *probePage) Eval(_ context.Context, js string, out any) error {
	switch v := out.(type) {
	case *bool:
		for _, h := range p.hits {
			if strings.Contains(js, h) {
				*v = true
				return nil
			}
		}
		*v = false
	case *string:
		if strings.Contains(js, "getFiberRoots") {
			*v = p.tree
		} else {
			*v = p.version
		}
	}
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		hits       []string
		wantFw     string
		wantConf   int
	}{
		{"nothing", nil, "", 0},
		{"devtools hook", []string{"__REACT_DEVTOOLS_GLOBAL_HOOK__"}, "react", 100},
		{"container key only", []string{"__reactContainer$"}, "react", 90},
		{"legacy attribute", []string{"data-reactroot"}, "react", 80},
		{"vue", []string{"data-v-app"}, "vue", 80},
		{"angular", []string{"ng-version"}, "angular", 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := &probePage{hits: tt.hits}
			d, err := Detect(context.Background(), pg)
			if err != nil {
				t.Fatal(err)
			}
			if d.Framework != tt.wantFw || d.Confidence != tt.wantConf {
				t.Errorf("Detect = %s/%d, want %s/%d", d.Framework, d.Confidence, tt.wantFw, tt.wantConf)
			}
		})
	}
}

func TestDetectReactVersion(t *testing.T) {
	pg := &probePage{hits: []string{"__REACT_DEVTOOLS_GLOBAL_HOOK__"}, version: "18.2.0"}
	d, err := Detect(context.Background(), pg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != "18.2.0" {
		t.Errorf("version = %q, want 18.2.0", d.Version)
	}
}

func TestReactProviderScan(t *testing.T) {
	snap := TreeSnapshot{
		Root: 0,
		Nodes: []TreeNode{
			{Name: "App", Kind: "composite", Child: 1, Sibling: -1},
			{Name: "div", Kind: "host", Child: -1, Sibling: -1, ElemID: 1},
		},
		Elements: []ElementRef{{ID: 1, Parent: 0, Selector: "div#root > div"}},
	}
	payload, _ := json.Marshal(snap)

	pg := &probePage{tree: string(payload)}
	got, err := ReactProvider{}.Scan(context.Background(), pg)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != 2 || got.Nodes[0].Name != "App" {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}

func TestReactProviderScanEmptyTree(t *testing.T) {
	pg := &probePage{tree: `{"root":-1,"nodes":[],"elements":[]}`}
	if _, err := (ReactProvider{}).Scan(context.Background(), pg); err == nil {
		t.Fatal("expected error for empty tree")
	}
}
