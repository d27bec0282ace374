package framework

import (
	"context"
	"encoding/json"
	"fmt"
)

// LocateTargets canonicalizes raw checker selectors into the same
// cssPath form the tree snapshot uses, returning for each resolvable
// target its self-first ancestor selector chain. Targets that no longer
// match anything on the page are simply absent from the map.
func LocateTargets(ctx context.Context, pg Page, targets []string) (map[string][]string, error) {
	if len(targets) == 0 {
		return map[string][]string{}, nil
	}
	payload, err := json.Marshal(targets)
	if err != nil {
		return nil, err
	}
	var raw string
	if err := pg.Eval(ctx, fmt.Sprintf(locateScript, payload), &raw); err != nil {
		return nil, fmt.Errorf("locate targets: %w", err)
	}
	out := make(map[string][]string)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode target locations: %w", err)
	}
	return out, nil
}

const locateScript = `((targets) => {
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

	const out = {};
	for (const t of targets) {
		let el = null;
		try { el = document.querySelector(t); } catch (e) { continue; }
		if (!el) continue;
		const chain = [];
		let cur = el;
		while (cur && cur.nodeType === 1 && cur !== document.documentElement) {
			chain.push(cssPath(cur));
			cur = cur.parentElement;
		}
		out[t] = chain;
	}
	return JSON.stringify(out);
})(%s)`
