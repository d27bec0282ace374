package keyboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// fakePager replays a scripted focus sequence and canned probe results.
type fakePager struct {
	sequence []FocusInfo
	pos      int

	skipLink  SkipLinkProbe
	skipErr   error
	traps     []TrapProbe
	trapsErr  error
	widgets   []Widget
	widgetErr error
}

func (f *fakePager) ResetFocus(context.Context) error { return nil }

func (f *fakePager) AdvanceFocus(context.Context) error { return nil }

func (f *fakePager) ActiveElement(context.Context) (FocusInfo, error) {
	if f.pos >= len(f.sequence) {
		return FocusInfo{}, nil // focus left the document
	}
	info := f.sequence[f.pos]
	f.pos++
	return info, nil
}

func (f *fakePager) SkipLink(context.Context) (SkipLinkProbe, error) {
	return f.skipLink, f.skipErr
}

func (f *fakePager) VisibleTraps(context.Context) ([]TrapProbe, error) {
	return f.traps, f.trapsErr
}

func (f *fakePager) CustomWidgets(context.Context) ([]Widget, error) {
	return f.widgets, f.widgetErr
}

func focusSeq(selectors ...string) []FocusInfo {
	seq := make([]FocusInfo, len(selectors))
	for i, s := range selectors {
		seq[i] = FocusInfo{Selector: s, Role: "button", HasIndicator: true}
	}
	return seq
}

func issuesOfType(r *Report, t result.IssueType) []result.KeyboardIssue {
	var out []result.KeyboardIssue
	for _, i := range r.Issues {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}

func TestFocusTrapThreshold(t *testing.T) {
	// Three identical selectors: exactly one trap issue, walk halted.
	pg := &fakePager{
		sequence: focusSeq("#x", "#x", "#x", "#after"),
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{})

	traps := issuesOfType(r, result.IssueFocusTrap)
	if len(traps) != 1 {
		t.Fatalf("expected exactly 1 focus-trap issue, got %d", len(traps))
	}
	if traps[0].Selector != "#x" || traps[0].Severity != result.ImpactCritical {
		t.Errorf("trap issue = %+v", traps[0])
	}
	// Walk halted: "#after" was never observed.
	for _, e := range r.TabOrder {
		if e.Selector == "#after" {
			t.Error("tab order collection did not halt at the trap")
		}
	}
}

func TestNoTrapOnTwoRepeats(t *testing.T) {
	// Two repeats then movement: the heuristic must not fire.
	pg := &fakePager{
		sequence: focusSeq("#x", "#x", "#y"),
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{})

	if traps := issuesOfType(r, result.IssueFocusTrap); len(traps) != 0 {
		t.Fatalf("expected no focus-trap issues, got %+v", traps)
	}
}

func TestCycleTermination(t *testing.T) {
	// Returning to the first selector after >= 3 entries closes the
	// loop: stop, no issue, no duplicate entry.
	pg := &fakePager{
		sequence: focusSeq("#a", "#b", "#c", "#a", "#b"),
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{})

	if traps := issuesOfType(r, result.IssueFocusTrap); len(traps) != 0 {
		t.Fatalf("cycle misread as trap: %+v", traps)
	}
	if len(r.TabOrder) != 3 {
		t.Errorf("tab order length = %d, want 3", len(r.TabOrder))
	}
	for i, e := range r.TabOrder {
		if e.Index != i {
			t.Errorf("entry %d has ordinal %d", i, e.Index)
		}
	}
}

func TestTrapThresholdTunable(t *testing.T) {
	// With the threshold raised to 4, three repeats are tolerated.
	// The default of 3 conflates "repeating" with "stopped changing",
	// which is why this is policy, not a hard constant.
	pg := &fakePager{
		sequence: focusSeq("#x", "#x", "#x"),
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{TrapRepeatThreshold: 4})

	if traps := issuesOfType(r, result.IssueFocusTrap); len(traps) != 0 {
		t.Fatalf("raised threshold still fired: %+v", traps)
	}
}

func TestMaxPressBudget(t *testing.T) {
	seq := make([]FocusInfo, 0, 20)
	for i := 0; i < 20; i++ {
		seq = append(seq, FocusInfo{Selector: "#el" + string(rune('a'+i)), HasIndicator: true})
	}
	pg := &fakePager{
		sequence: seq,
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{MaxTabPresses: 5})

	if len(r.TabOrder) != 5 {
		t.Errorf("tab order length = %d, want 5 (press budget)", len(r.TabOrder))
	}
}

func TestFocusIndicatorAudit(t *testing.T) {
	pg := &fakePager{
		sequence: []FocusInfo{
			{Selector: "#a", HasIndicator: true},
			{Selector: "#b", HasIndicator: false},
			{Selector: "#c", HasIndicator: false},
		},
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
	}
	r := Run(context.Background(), pg, Options{})

	issues := issuesOfType(r, result.IssueNoFocusIndicator)
	if len(issues) != 2 {
		t.Fatalf("expected 2 no-focus-indicator issues, got %d", len(issues))
	}
	for _, i := range issues {
		if i.Severity != result.ImpactSerious {
			t.Errorf("severity = %s, want serious", i.Severity)
		}
	}
}

func TestSkipLinkAudit(t *testing.T) {
	tests := []struct {
		name     string
		probe    SkipLinkProbe
		want     int
		severity result.Impact
	}{
		{"functional", SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true}, 0, ""},
		{"absent", SkipLinkProbe{}, 1, result.ImpactModerate},
		{"target missing", SkipLinkProbe{Present: true}, 1, result.ImpactSerious},
		{"does not move focus", SkipLinkProbe{Present: true, TargetExists: true}, 1, result.ImpactSerious},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := &fakePager{skipLink: tt.probe}
			r := Run(context.Background(), pg, Options{})
			issues := issuesOfType(r, result.IssueSkipLinkBroken)
			if len(issues) != tt.want {
				t.Fatalf("got %d skip-link issues, want %d", len(issues), tt.want)
			}
			if tt.want == 1 && issues[0].Severity != tt.severity {
				t.Errorf("severity = %s, want %s", issues[0].Severity, tt.severity)
			}
		})
	}
}

func TestTrapRevalidationModalExempt(t *testing.T) {
	pg := &fakePager{
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
		traps: []TrapProbe{
			{Selector: "#modal", Role: "dialog", Trapped: true},       // required behavior
			{Selector: "#alert", Role: "alertdialog", Trapped: true},  // required behavior
			{Selector: "#menu", Role: "menu", Trapped: true},          // defect
			{Selector: "#other-menu", Role: "menu", Trapped: false},   // not trapping
		},
	}
	r := Run(context.Background(), pg, Options{})

	traps := issuesOfType(r, result.IssueFocusTrap)
	if len(traps) != 1 {
		t.Fatalf("expected 1 trap issue, got %d: %+v", len(traps), traps)
	}
	if traps[0].Selector != "#menu" {
		t.Errorf("trap reported on %s, want #menu", traps[0].Selector)
	}
}

func TestCustomWidgetClassification(t *testing.T) {
	pg := &fakePager{
		skipLink: SkipLinkProbe{Present: true, TargetExists: true, MovesFocus: true},
		widgets: []Widget{
			{Selector: "#full", Role: "button", HasTabStop: true, HasKeyHandler: true, HasPointerHandler: true},
			{Selector: "#partial", Role: "slider", HasTabStop: true, HasPointerHandler: true},
			{Selector: "#none", Role: "checkbox", HasPointerHandler: true},
			{Selector: "#inert", Role: "option"}, // no affordances at all, skipped
		},
	}
	r := Run(context.Background(), pg, Options{})

	issues := issuesOfType(r, result.IssueKeyboardInaccessible)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	bySel := map[string]result.Impact{}
	for _, i := range issues {
		bySel[i.Selector] = i.Severity
	}
	if bySel["#none"] != result.ImpactCritical {
		t.Errorf("pointer-only widget severity = %s, want critical", bySel["#none"])
	}
	if bySel["#partial"] != result.ImpactSerious {
		t.Errorf("partial widget severity = %s, want serious", bySel["#partial"])
	}
}

func TestSubProcedureIsolation(t *testing.T) {
	// A failing probe is recorded and the remaining procedures run.
	pg := &fakePager{
		sequence: focusSeq("#a", "#b"),
		skipErr:  errors.New("evaluate failed"),
		widgets:  []Widget{{Selector: "#w", Role: "button", HasPointerHandler: true}},
	}
	r := Run(context.Background(), pg, Options{})

	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", r.Errors)
	}
	if len(issuesOfType(r, result.IssueKeyboardInaccessible)) != 1 {
		t.Error("widget audit did not run after skip-link failure")
	}
}

func TestInteractiveRoleSelector(t *testing.T) {
	sel := interactiveRoleSelector()
	for _, want := range []string{`[role="button"]`, `[role="treeitem"]`} {
		if !strings.Contains(sel, want) {
			t.Errorf("selector missing %s", want)
		}
	}
	if sel != interactiveRoleSelector() {
		t.Error("selector not deterministic")
	}
}
