package security

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

func builtinRules() []Rule {
	return []Rule{
		&HookCommandRule{},
		&BinaryFileRule{},
		&HiddenCharacterRule{},
	}
}

type PatternDef struct {
	Pattern     *regexp.Regexp
	Severity    Severity
	Description string
}

// HookCommandRule flags post-install commands that go beyond project
// scaffolding.
type HookCommandRule struct{}

func (r *HookCommandRule) ID() string { return "SCAN_HOOK_COMMAND" }

var hookPatterns = []PatternDef{
	{regexp.MustCompile(`rm\s+-(?:rf|fr)\s+/(?:\s|$)`), SeverityCritical, "Destructive file deletion (rm -rf /)"},
	{regexp.MustCompile(`rm\s+-(?:rf|fr)\s+(?:~|\$HOME)`), SeverityCritical, "Destructive home directory deletion"},
	{regexp.MustCompile(`(?:curl|wget)\s+[^|]*\|\s*(?:ba|z)?sh`), SeverityCritical, "Remote code execution pipe detected"},
	{regexp.MustCompile(`base64\s+(?:-d|--decode)[^|]*\|\s*(?:ba)?sh`), SeverityCritical, "Obfuscated code execution detected"},
	{regexp.MustCompile(`/etc/(?:shadow|passwd)`), SeverityCritical, "Access to system account files detected"},
	{regexp.MustCompile(`mkfifo\b.*\bnc\b|\bnc\b.*-e\s+/bin/`), SeverityCritical, "Reverse shell pattern detected"},
	{regexp.MustCompile(`(?:~|\$HOME)/\.ssh/`), SeverityCritical, "SSH key access detected"},
	{regexp.MustCompile(`chmod\s+(?:-R\s+)?777\s+/`), SeverityCritical, "Dangerous permission change on system path"},
	{regexp.MustCompile(`\bsudo\b`), SeverityHigh, "Privilege escalation via sudo"},
	{regexp.MustCompile(`curl\s+.*(?:-d|--data)\s|wget\s+--post-data`), SeverityHigh, "Data upload from a hook"},
	{regexp.MustCompile(`\bnpm\s+(?:i|install)\s+(?:-g|--global)\b`), SeverityMedium, "Global package installation"},
	{regexp.MustCompile(`git\s+config\s+--global`), SeverityMedium, "Global git config modification"},
}

func (r *HookCommandRule) Scan(_ context.Context, s Subject) []Finding {
	var findings []Finding
	for _, command := range s.Hooks {
		for _, p := range hookPatterns {
			if p.Pattern.MatchString(command) {
				findings = append(findings, Finding{
					RuleID:      r.ID(),
					Severity:    p.Severity,
					Resource:    s.Resource,
					Target:      command,
					Pattern:     p.Pattern.String(),
					Description: p.Description,
				})
			}
		}
	}
	return findings
}

// BinaryFileRule flags executables shipped as component source.
type BinaryFileRule struct{}

func (r *BinaryFileRule) ID() string { return "SCAN_BINARY_FILE" }

var binaryMagic = []struct {
	prefix string
	desc   string
}{
	{"\x7fELF", "ELF binary executable detected"},
	{"\xcf\xfa\xed\xfe", "Mach-O binary executable detected"},
	{"\xce\xfa\xed\xfe", "Mach-O 32-bit binary executable detected"},
	{"MZ\x90\x00", "PE (Windows) binary executable detected"},
}

func (r *BinaryFileRule) Scan(_ context.Context, s Subject) []Finding {
	var findings []Finding
	for _, path := range sortedPaths(s.Files) {
		content := s.Files[path]
		for _, m := range binaryMagic {
			if strings.HasPrefix(content, m.prefix) {
				findings = append(findings, Finding{
					RuleID:      r.ID(),
					Severity:    SeverityHigh,
					Resource:    s.Resource,
					Target:      path,
					Description: m.desc,
				})
				break
			}
		}
	}
	return findings
}

// HiddenCharacterRule flags bidirectional overrides and zero-width
// characters that make source read differently than it compiles.
type HiddenCharacterRule struct{}

func (r *HiddenCharacterRule) ID() string { return "SCAN_HIDDEN_CHARACTER" }

var hiddenPatterns = []PatternDef{
	{regexp.MustCompile(`[\x{202A}-\x{202E}\x{2066}-\x{2069}]`), SeverityHigh, "Bidirectional override character detected"},
	{regexp.MustCompile(`[\x{200B}-\x{200D}\x{2060}]`), SeverityMedium, "Zero-width character detected"},
}

func (r *HiddenCharacterRule) Scan(_ context.Context, s Subject) []Finding {
	var findings []Finding
	for _, path := range sortedPaths(s.Files) {
		for i, line := range strings.Split(s.Files[path], "\n") {
			for _, p := range hiddenPatterns {
				if p.Pattern.MatchString(line) {
					findings = append(findings, Finding{
						RuleID:      r.ID(),
						Severity:    p.Severity,
						Resource:    s.Resource,
						Target:      path,
						Line:        i + 1,
						Description: p.Description,
					})
				}
			}
		}
	}
	return findings
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
