package keyboard

import (
	"context"
	"encoding/json"
	"fmt"
)

const keyTab = "\t"

// Driver is the slice of the browser session the CDP pager needs.
type Driver interface {
	Eval(ctx context.Context, js string, out any) error
	PressKey(ctx context.Context, key string) error
}

// CDPPager implements Pager against a live page: focus advances are
// real synthesized key events, element queries are evaluate round-trips
// returning JSON payloads.
type CDPPager struct {
	drv Driver
}

func NewCDPPager(drv Driver) *CDPPager {
	return &CDPPager{drv: drv}
}

func (p *CDPPager) ResetFocus(ctx context.Context) error {
	var ok bool
	return p.drv.Eval(ctx, `(() => {
		if (document.activeElement && document.activeElement.blur) document.activeElement.blur();
		if (document.body) document.body.focus();
		return true;
	})()`, &ok)
}

func (p *CDPPager) AdvanceFocus(ctx context.Context) error {
	return p.drv.PressKey(ctx, keyTab)
}

func (p *CDPPager) ActiveElement(ctx context.Context) (FocusInfo, error) {
	var raw string
	if err := p.drv.Eval(ctx, activeElementScript, &raw); err != nil {
		return FocusInfo{}, err
	}
	var info FocusInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return FocusInfo{}, fmt.Errorf("decode active element: %w", err)
	}
	return info, nil
}

func (p *CDPPager) SkipLink(ctx context.Context) (SkipLinkProbe, error) {
	var raw string
	if err := p.drv.Eval(ctx, skipLinkScript, &raw); err != nil {
		return SkipLinkProbe{}, err
	}
	var probe SkipLinkProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return SkipLinkProbe{}, fmt.Errorf("decode skip link probe: %w", err)
	}
	return probe, nil
}

func (p *CDPPager) VisibleTraps(ctx context.Context) ([]TrapProbe, error) {
	var raw string
	if err := p.drv.Eval(ctx, visibleTrapsScript, &raw); err != nil {
		return nil, err
	}
	var traps []TrapProbe
	if err := json.Unmarshal([]byte(raw), &traps); err != nil {
		return nil, fmt.Errorf("decode trap probes: %w", err)
	}
	return traps, nil
}

func (p *CDPPager) CustomWidgets(ctx context.Context) ([]Widget, error) {
	var raw string
	js := fmt.Sprintf(customWidgetsScript, interactiveRoleSelector())
	if err := p.drv.Eval(ctx, js, &raw); err != nil {
		return nil, err
	}
	var widgets []Widget
	if err := json.Unmarshal([]byte(raw), &widgets); err != nil {
		return nil, fmt.Errorf("decode widgets: %w", err)
	}
	return widgets, nil
}

// cssPathFn is shared by the page-side scripts below. Same shape as the
// selectors the component-tree provider emits, so attribution and
// keyboard results line up.
const cssPathFn = `
	const cssPath = (el) => {
		const parts = [];
		let cur = el;
		while (cur && cur.nodeType === 1 && cur !== document.documentElement) {
			let part = cur.localName;
			if (cur.id) { parts.unshift(part + '#' + CSS.escape(cur.id)); break; }
			let nth = 1, sib = cur;
			while ((sib = sib.previousElementSibling)) {
				if (sib.localName === cur.localName) nth++;
			}
			if (nth > 1) part += ':nth-of-type(' + nth + ')';
			parts.unshift(part);
			cur = cur.parentElement;
		}
		return parts.join(' > ');
	};`

const activeElementScript = `(() => {` + cssPathFn + `
	const el = document.activeElement;
	if (!el || el === document.body || el === document.documentElement) {
		return JSON.stringify({selector: "", role: "", hasIndicator: false});
	}
	const implicit = {a: "link", button: "button", input: "textbox", select: "combobox",
		textarea: "textbox", summary: "button"};
	const role = el.getAttribute("role") || implicit[el.localName] || "";
	const style = getComputedStyle(el);
	const hasOutline = style.outlineStyle !== "none" && parseFloat(style.outlineWidth) > 0;
	const hasShadow = style.boxShadow && style.boxShadow !== "none";
	return JSON.stringify({
		selector: cssPath(el),
		role: role,
		hasIndicator: hasOutline || hasShadow,
	});
})()`

const skipLinkScript = `(() => {
	const links = Array.from(document.querySelectorAll('a[href^="#"]')).slice(0, 10);
	const skip = links.find(a => /skip/i.test(a.textContent || "") || /skip/i.test(a.getAttribute("aria-label") || ""));
	if (!skip) return JSON.stringify({present: false, targetExists: false, movesFocus: false});
	const id = skip.getAttribute("href").slice(1);
	const target = id ? document.getElementById(id) : null;
	const focusable = !!target && (target.tabIndex >= 0 || target.hasAttribute("tabindex") ||
		/^(a|button|input|select|textarea)$/.test(target.localName));
	return JSON.stringify({present: true, targetExists: !!target, movesFocus: focusable});
})()`

const visibleTrapsScript = `(() => {` + cssPathFn + `
	const candidates = document.querySelectorAll(
		'[role="dialog"], [role="alertdialog"], [role="menu"], [aria-modal]');
	const out = [];
	for (const el of candidates) {
		const style = getComputedStyle(el);
		if (style.display === "none" || style.visibility === "hidden") continue;
		const focusables = el.querySelectorAll(
			'a[href], button, input, select, textarea, [tabindex]:not([tabindex="-1"])');
		const trapped = focusables.length > 0 && el.contains(document.activeElement);
		out.push({
			selector: cssPath(el),
			role: el.getAttribute("role") || (el.hasAttribute("aria-modal") ? "dialog" : ""),
			trapped: trapped,
		});
	}
	return JSON.stringify(out);
})()`

// customWidgetsScript reports handler presence from attributes and
// element properties. Listeners added via addEventListener are not
// observable from page script, so "none" here means no detectable
// handler, which the engine treats as the defect signal anyway.
const customWidgetsScript = `(() => {` + cssPathFn + `
	const native = /^(a|button|input|select|textarea|summary|option)$/;
	const out = [];
	for (const el of document.querySelectorAll('%s')) {
		if (native.test(el.localName)) continue;
		out.push({
			selector: cssPath(el),
			role: el.getAttribute("role"),
			hasTabStop: el.tabIndex >= 0,
			hasKeyHandler: !!(el.onkeydown || el.onkeyup || el.onkeypress ||
				el.hasAttribute("onkeydown") || el.hasAttribute("onkeyup")),
			hasPointerHandler: !!(el.onclick || el.onmousedown ||
				el.hasAttribute("onclick") || getComputedStyle(el).cursor === "pointer"),
		});
	}
	return JSON.stringify(out);
})()`
