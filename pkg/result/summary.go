package result

import "strings"

// Summary is the derived roll-up of a scan: counts by impact, by WCAG
// conformance level, and the keyboard severity buckets.
type Summary struct {
	TotalViolations int            `json:"totalViolations"`
	TotalInstances  int            `json:"totalInstances"`
	ByImpact        map[Impact]int `json:"byImpact"`
	ByLevel         map[string]int `json:"byLevel"`

	CriticalIssues int `json:"criticalIssues"`
	SeriousIssues  int `json:"seriousIssues"`
	ModerateIssues int `json:"moderateIssues"`
	TotalIssues    int `json:"totalIssues"`
}

// LevelFromTags derives the WCAG conformance level (A/AA/AAA) from a
// checker rule's tag list. Axe tags look like "wcag2a", "wcag21aa",
// "wcag22aaa"; best-practice rules carry no wcag tag and yield "".
func LevelFromTags(tags []string) string {
	level := ""
	for _, tag := range tags {
		if !strings.HasPrefix(tag, "wcag2") {
			continue
		}
		suffix := strings.TrimLeft(strings.TrimPrefix(tag, "wcag"), "0123456789")
		switch suffix {
		case "aaa":
			return "AAA"
		case "aa":
			level = "AA"
		case "a":
			if level == "" {
				level = "A"
			}
		}
	}
	return level
}

// Summarize rolls findings and keyboard issues up into counts. Pure.
func Summarize(findings []AttributedFinding, issues []KeyboardIssue) Summary {
	s := Summary{
		ByImpact: make(map[Impact]int),
		ByLevel:  make(map[string]int),
	}

	for _, f := range findings {
		s.TotalViolations++
		s.TotalInstances += len(f.Instances)
		s.ByImpact[f.Impact]++
		if level := LevelFromTags(f.Tags); level != "" {
			s.ByLevel[level]++
		}
	}

	for _, issue := range issues {
		s.TotalIssues++
		switch issue.Severity {
		case ImpactCritical:
			s.CriticalIssues++
		case ImpactSerious:
			s.SeriousIssues++
		case ImpactModerate:
			s.ModerateIssues++
		}
	}

	return s
}
