// Package prompt assembles generation instructions per task and locale.
// Builders are pure: no network, no cache, no clock. Locale selects a fixed
// template; nothing is translated at runtime.
package prompt

import (
	"fmt"
	"strings"

	"github.com/scribe-cloud/quill/internal/domain"
)

// Input carries the user-authored material for one assembly.
type Input struct {
	Text    string // primary text: topic, content body, or CV text
	Section string // CV section name (cv_section task)
	Job     string // job description (cv_match task)
}

// Build assembles the full instruction string for a task: framing, output
// contract, scoring rules where applicable, then exemplars verbatim.
// Unknown locales fall back to English.
func Build(task domain.Task, locale domain.Locale, in Input, exemplars []string) (string, error) {
	tpl, ok := templates[key{task, locale}]
	if !ok {
		tpl, ok = templates[key{task, domain.LocaleEN}]
	}
	if !ok {
		return "", fmt.Errorf("no template for task %q", task)
	}

	var sb strings.Builder
	sb.WriteString(tpl.framing)
	sb.WriteString("\n\n")
	sb.WriteString(tpl.format)
	sb.WriteString("\n\n")
	if tpl.rules != "" {
		sb.WriteString(tpl.rules)
		sb.WriteString("\n\n")
	}

	writeExemplars(&sb, locale, exemplars)

	switch task {
	case domain.TaskCVSection:
		sb.WriteString(sectionLabel(locale))
		sb.WriteString(in.Section)
		sb.WriteString("\n\n")
		sb.WriteString(inputLabel(locale))
		sb.WriteString("\n")
		sb.WriteString(in.Text)
	case domain.TaskCVMatch:
		sb.WriteString(cvLabel(locale))
		sb.WriteString("\n")
		sb.WriteString(in.Text)
		sb.WriteString("\n\n")
		sb.WriteString(jobLabel(locale))
		sb.WriteString("\n")
		sb.WriteString(in.Job)
	default:
		sb.WriteString(inputLabel(locale))
		sb.WriteString("\n")
		sb.WriteString(in.Text)
	}
	sb.WriteString("\n")

	return sb.String(), nil
}

// writeExemplars appends retrieved reference material verbatim, numbered in
// rank order. No exemplars means the section states so rather than vanishing,
// which keeps the model from inventing references.
func writeExemplars(sb *strings.Builder, locale domain.Locale, exemplars []string) {
	sb.WriteString(exemplarHeading(locale))
	sb.WriteString("\n")
	if len(exemplars) == 0 {
		sb.WriteString(noExemplarNote(locale))
		sb.WriteString("\n\n")
		return
	}
	for i, ex := range exemplars {
		fmt.Fprintf(sb, "[%d]\n%s\n\n", i+1, ex)
	}
}
