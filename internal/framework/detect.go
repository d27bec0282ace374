package framework

import (
	"context"
	"log/slog"
)

// signature is one fingerprint probe evaluated against the live page.
// Probes for the same framework are ordered strongest first; the first
// hit short-circuits that framework.
type signature struct {
	framework  string
	probe      string // JS expression yielding a boolean
	confidence int
}

var signatures = []signature{
	{"react", `!!(window.__REACT_DEVTOOLS_GLOBAL_HOOK__ &&
		window.__REACT_DEVTOOLS_GLOBAL_HOOK__.renderers &&
		window.__REACT_DEVTOOLS_GLOBAL_HOOK__.renderers.size > 0)`, 100},
	{"react", `(() => {
		const roots = [document.getElementById('root'), document.getElementById('app'), document.body];
		return roots.some(r => r && Object.keys(r).some(k =>
			k.startsWith('__reactContainer$') || k.startsWith('_reactRootContainer')));
	})()`, 90},
	{"react", `!!document.querySelector('[data-reactroot], [data-reactid]')`, 80},
	{"vue", `!!(window.__VUE__ || window.__VUE_DEVTOOLS_GLOBAL_HOOK__ ||
		document.querySelector('[data-v-app]'))`, 80},
	{"angular", `!!(window.ng || document.querySelector('[ng-version]'))`, 80},
}

const reactVersionProbe = `(() => {
	const hook = window.__REACT_DEVTOOLS_GLOBAL_HOOK__;
	if (!hook || !hook.renderers) return "";
	for (const r of hook.renderers.values()) {
		if (r.version) return r.version;
	}
	return "";
})()`

// Detect fingerprints the page against the known framework signatures.
// Probe failures are logged and skipped; the strongest surviving hit
// wins. A zero Detection means nothing was recognized.
func Detect(ctx context.Context, pg Page) (Detection, error) {
	var best Detection
	seen := make(map[string]bool)

	for _, sig := range signatures {
		if seen[sig.framework] {
			continue
		}
		var hit bool
		if err := pg.Eval(ctx, sig.probe, &hit); err != nil {
			slog.Debug("framework probe failed", "framework", sig.framework, "err", err)
			continue
		}
		if !hit {
			continue
		}
		seen[sig.framework] = true
		if sig.confidence > best.Confidence {
			best = Detection{Framework: sig.framework, Confidence: sig.confidence}
		}
	}

	if best.Framework == "react" {
		var version string
		if err := pg.Eval(ctx, reactVersionProbe, &version); err == nil {
			best.Version = version
		}
	}

	return best, nil
}
