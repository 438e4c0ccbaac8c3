// Package cleaner normalizes extracted page text for retrieval-augmented
// generation ingestion.
package cleaner

import (
	"regexp"
	"strings"
)

// Boilerplate patterns are matched while line boundaries still exist. Each
// open-ended pattern runs to end of line or end of text, so removal must
// happen before whitespace collapsing erases the anchors these rely on.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`¶`),
	// Each span runs from a bracket to the first closing bracket after it,
	// so one pass consumes nested openers and leaves nothing for a second
	// pass to match.
	regexp.MustCompile(`\[[^\]]*\]`),
	regexp.MustCompile(`©[^\n]*`),
	regexp.MustCompile(`Cookie[^\n]*`),
	regexp.MustCompile(`Privacy[^\n]*`),
	regexp.MustCompile(`\d+\s*min read`),
	regexp.MustCompile(`Last updated:[^\n]*`),
	regexp.MustCompile(`Share on[^\n]*`),
	regexp.MustCompile(`Follow us on[^\n]*`),
}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	blankLines     = regexp.MustCompile(`\n\s*\n`)
	spaceRuns      = regexp.MustCompile(` +`)
)

// Clean transforms extracted main content into normalized plain text. It is
// pure, total and idempotent: Clean(Clean(x)) == Clean(x).
//
// The pipeline order is a contract:
//  1. remove line-anchored boilerplate (copyright, cookie/privacy notices,
//     share/follow prompts, read-time markers, update stamps)
//  2. collapse whitespace runs, newlines included, to a single space
//  3. collapse blank-line runs, collapse repeated spaces, trim each line,
//     trim the result
func Clean(text string) string {
	cleaned := text

	for _, pattern := range boilerplatePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")

	cleaned = blankLines.ReplaceAllString(cleaned, "\n")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	cleaned = strings.Join(lines, "\n")

	return strings.TrimSpace(cleaned)
}
