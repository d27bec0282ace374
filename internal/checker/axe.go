package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/justinleeirizarry/a11y-scanner-sub000/pkg/result"
)

// ErrNoSource means the page does not bundle axe-core and no source was
// configured to inject. Retrying cannot fix a missing source, so the
// orchestrator treats it as fatal on the first attempt.
var ErrNoSource = errors.New("axe-core not present on page and no axe source configured")

// AxeChecker drives an axe-core build over the evaluate channel.
// If Source is set it is injected when the page doesn't already expose
// window.axe; otherwise the page must bundle axe itself.
type AxeChecker struct {
	Source string
}

const axeProbe = `typeof window.axe === "object" && typeof window.axe.run === "function"`

func (a *AxeChecker) Run(ctx context.Context, pg Page, opts Options) (*Results, error) {
	var present bool
	if err := pg.Eval(ctx, axeProbe, &present); err != nil {
		return nil, fmt.Errorf("axe probe: %w", err)
	}
	if !present {
		if a.Source == "" {
			return nil, ErrNoSource
		}
		if err := pg.Eval(ctx, a.Source, nil); err != nil {
			return nil, fmt.Errorf("axe inject: %w", err)
		}
		if err := pg.Eval(ctx, axeProbe, &present); err != nil || !present {
			return nil, fmt.Errorf("axe-core did not initialize after injection")
		}
	}

	runOpts := "{}"
	if len(opts.Tags) > 0 {
		b, err := json.Marshal(map[string]any{
			"runOnly": map[string]any{"type": "tag", "values": opts.Tags},
		})
		if err != nil {
			return nil, err
		}
		runOpts = string(b)
	}

	var raw string
	js := fmt.Sprintf(`axe.run(document, %s).then(r => JSON.stringify(r))`, runOpts)
	if err := pg.Eval(ctx, js, &raw); err != nil {
		return nil, fmt.Errorf("axe run: %w", err)
	}

	return decodeAxeResults([]byte(raw))
}

// Raw axe result types. Node targets are decoded manually because axe
// emits plain selectors for light DOM but nested arrays for shadow DOM
// and iframes.

type axeRaw struct {
	Violations   []axeRule `json:"violations"`
	Passes       []axeRule `json:"passes"`
	Incomplete   []axeRule `json:"incomplete"`
	Inapplicable []axeRule `json:"inapplicable"`
}

type axeRule struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	HelpURL     string    `json:"helpUrl"`
	Tags        []string  `json:"tags"`
	Nodes       []axeNode `json:"nodes"`
}

type axeNode struct {
	Target         []json.RawMessage `json:"target"`
	HTML           string            `json:"html"`
	FailureSummary string            `json:"failureSummary"`
}

// decodeTarget tolerates both selector shapes axe produces.
func decodeTarget(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, " >>> ")
	}
	return strings.Trim(string(raw), `"`)
}

func (n axeNode) selector() string {
	parts := make([]string, 0, len(n.Target))
	for _, t := range n.Target {
		parts = append(parts, decodeTarget(t))
	}
	return strings.Join(parts, ", ")
}

func decodeAxeResults(data []byte) (*Results, error) {
	var raw axeRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode axe results: %w", err)
	}
	return &Results{
		Violations:   mapRules(raw.Violations),
		Passes:       mapRules(raw.Passes),
		Incomplete:   mapRules(raw.Incomplete),
		Inapplicable: mapRules(raw.Inapplicable),
	}, nil
}

func mapRules(rules []axeRule) []result.Finding {
	findings := make([]result.Finding, 0, len(rules))
	for _, r := range rules {
		f := result.Finding{
			ID:          r.ID,
			Impact:      result.Impact(r.Impact),
			Description: r.Description,
			Help:        r.Help,
			HelpURL:     r.HelpURL,
			Tags:        r.Tags,
		}
		for _, n := range r.Nodes {
			f.Instances = append(f.Instances, result.Instance{
				Target:  n.selector(),
				HTML:    n.HTML,
				Summary: n.FailureSummary,
			})
		}
		findings = append(findings, f)
	}
	return findings
}
