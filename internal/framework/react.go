package framework

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReactProvider snapshots component trees through the React devtools
// hook. It is the only tree plugin shipped; other frameworks fall back
// to detection-only (attribution degrades to no component data).
type ReactProvider struct{}

func (ReactProvider) Detect(ctx context.Context, pg Page) (Detection, error) {
	d, err := Detect(ctx, pg)
	if err != nil {
		return Detection{}, err
	}
	if d.Framework != "react" {
		return Detection{}, nil
	}
	return d, nil
}

func (ReactProvider) Scan(ctx context.Context, pg Page) (*TreeSnapshot, error) {
	var raw string
	if err := pg.Eval(ctx, reactTreeScript, &raw); err != nil {
		return nil, fmt.Errorf("component tree scan: %w", err)
	}
	var snap TreeSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode component tree: %w", err)
	}
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("component tree empty (no fiber roots reachable)")
	}
	return &snap, nil
}

// reactTreeScript walks the fiber tree from the devtools hook's roots
// and serializes it with first-child / next-sibling index links plus an
// element index keyed by opaque ids. One shot, no page globals left
// behind.
const reactTreeScript = `(() => {
	const hook = window.__REACT_DEVTOOLS_GLOBAL_HOOK__;
	if (!hook || !hook.getFiberRoots) return JSON.stringify({root: -1, nodes: [], elements: []});

	const nodes = [];
	const elements = [];
	const elemIds = new Map();

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
	};

	const idFor = (el) => {
		if (!el || el.nodeType !== 1) return 0;
		if (elemIds.has(el)) return elemIds.get(el);
		const id = elemIds.size + 1;
		elemIds.set(el, id);
		const parent = el === document.documentElement ? 0 : idFor(el.parentElement);
		elements.push({id: id, parent: parent, selector: cssPath(el)});
		return id;
	};

	const nameOf = (fiber) => {
		const t = fiber.type;
		if (typeof t === 'string') return {name: t, kind: 'host'};
		if (t == null) return {name: '', kind: 'composite'};
		const name = t.displayName || t.name ||
			(t.render && (t.render.displayName || t.render.name)) ||
			(t.type && (t.type.displayName || t.type.name)) || '';
		return {name: name, kind: 'composite'};
	};

	const build = (fiber) => {
		if (!fiber) return -1;
		const idx = nodes.length;
		const info = nameOf(fiber);
		const node = {name: info.name, kind: info.kind, child: -1, sibling: -1, elem: 0};
		nodes.push(node);
		if (fiber.stateNode && fiber.stateNode.nodeType === 1) {
			node.elem = idFor(fiber.stateNode);
		}
		node.child = build(fiber.child);
		node.sibling = build(fiber.sibling);
		return idx;
	};

	let root = -1;
	for (const fiberRoot of hook.getFiberRoots(1)) {
		root = build(fiberRoot.current);
		break;
	}
	return JSON.stringify({root: root, nodes: nodes, elements: elements});
})()`
