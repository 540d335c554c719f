package security

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"aster/internal/config"
)

// Severity levels for scan findings, ordered by impact.
type Severity int

const (
	SeverityInfo     Severity = iota // Informational, never blocks
	SeverityLow                      // Minor concern
	SeverityMedium                   // Worth a look before running
	SeverityHigh                     // Blocks by default
	SeverityCritical                 // Always blocks, even with --force
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// ParseSeverity converts a severity string to its typed value.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info":
		return SeverityInfo
	default:
		return SeverityHigh // safe default
	}
}

// Finding represents a single issue detected by a rule. Target is the file
// path or the hook command the finding refers to.
type Finding struct {
	RuleID      string   `json:"ruleId"`
	Severity    Severity `json:"severity"`
	Resource    string   `json:"resource"`
	Target      string   `json:"target"`
	Line        int      `json:"line,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Description string   `json:"description"`
}

type Report struct {
	Findings []Finding `json:"findings"`
}

// MaxSeverity returns the highest severity across all findings.
func (r Report) MaxSeverity() Severity {
	max := SeverityInfo
	for _, f := range r.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// Subject is the flattened view of one resource handed to each rule.
type Subject struct {
	Resource string
	Files    map[string]string
	Hooks    []string
}

// Rule is the interface all scan rules implement.
type Rule interface {
	ID() string
	Scan(ctx context.Context, s Subject) []Finding
}

// Scanner orchestrates rule execution.
type Scanner struct {
	rules         []Rule
	disabledRules map[string]bool
	blockSeverity Severity
}

func NewScanner(cfg config.SecurityConfig) *Scanner {
	disabled := make(map[string]bool, len(cfg.DisabledRules))
	for _, id := range cfg.DisabledRules {
		disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	return &Scanner{
		rules:         builtinRules(),
		disabledRules: disabled,
		blockSeverity: ParseSeverity(cfg.BlockSeverity),
	}
}

// Scan runs all enabled rules against s. Findings are ordered by target
// and line so reports are stable.
func (sc *Scanner) Scan(ctx context.Context, s Subject) Report {
	var report Report
	for _, rule := range sc.rules {
		if sc.disabledRules[rule.ID()] {
			continue
		}
		report.Findings = append(report.Findings, rule.Scan(ctx, s)...)
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Line < b.Line
	})
	return report
}

// Enforce checks the report against policy and returns an error if blocked.
// force=true lets findings below critical through.
func (sc *Scanner) Enforce(report Report, force bool) error {
	max := report.MaxSeverity()
	if max == SeverityCritical {
		return fmt.Errorf("SEC_SCAN_CRITICAL: %s", formatFindings(report, SeverityCritical))
	}
	if max >= sc.blockSeverity && !force {
		return fmt.Errorf("SEC_SCAN_BLOCKED: %s; use --force to proceed", formatFindings(report, sc.blockSeverity))
	}
	return nil
}

func formatFindings(report Report, minSeverity Severity) string {
	var parts []string
	for _, f := range report.Findings {
		if f.Severity >= minSeverity {
			desc := f.Description
			if f.Target != "" {
				desc = f.Target + ": " + desc
			}
			parts = append(parts, fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(f.Severity.String()), f.RuleID, desc))
		}
	}
	switch len(parts) {
	case 0:
		return "no findings"
	case 1:
		return parts[0]
	}
	return fmt.Sprintf("%d findings: %s", len(parts), strings.Join(parts, "; "))
}
