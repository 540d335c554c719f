package fsutil

import "strings"

// CountLines returns the number of lines in content. A trailing newline
// does not start a new line; empty content has zero lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// NormalizeContent strips carriage returns and trailing whitespace so that
// formatting-only differences compare equal.
func NormalizeContent(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SameContent reports whether a and b differ only in whitespace at line ends.
func SameContent(a, b string) bool {
	return NormalizeContent(a) == NormalizeContent(b)
}
