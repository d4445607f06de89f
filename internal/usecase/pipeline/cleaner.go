package pipeline

import (
	"regexp"
	"strings"
)

// Generation artifact patterns. Models tend to wrap output in code fences,
// prepend stray headings, and separate paragraphs with runs of blank lines.
var (
	codeFenceRe = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*[ \t]*\r?\n?")
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	horizRuleRe = regexp.MustCompile(`(?m)^[ \t]*(-{3,}|\*{3,}|_{3,})[ \t]*\r?\n?`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// cleanArtifacts strips generation-format artifacts from model output:
// code fence lines, markdown heading markers, horizontal rules, and runs of
// blank lines. Inline text and placeholder tokens are left untouched.
func cleanArtifacts(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = headingRe.ReplaceAllString(text, "")
	text = horizRuleRe.ReplaceAllString(text, "")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
