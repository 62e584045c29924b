package scriptsource

import "strings"

// Dedent removes the longest common leading whitespace margin from all lines.
//
// A script written as an indented string literal in a test must run identically
// to a flush-left file, so the margin is computed over non-blank lines only and
// whitespace-only lines are normalized to empty. Tabs and spaces are compared
// literally, not expanded: "\t" and "        " are different margins.
//
// Dedent is idempotent: Dedent(Dedent(s)) == Dedent(s).
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	margin := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		margin = commonPrefix(margin, indent)
	}

	if margin == "" && !containsBlankIndent(lines) {
		return text
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		out[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(out, "\n")
}

// commonPrefix returns the longest common prefix of two whitespace margins.
func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// containsBlankIndent reports whether any whitespace-only line carries
// characters that normalization would strip.
func containsBlankIndent(lines []string) bool {
	for _, line := range lines {
		if line != "" && strings.TrimSpace(line) == "" {
			return true
		}
	}
	return false
}
