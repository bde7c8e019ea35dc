// Package response renders the recovery message shown to the agent.
package response

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/recoverkit/classify"
	"github.com/vinayprograms/recoverkit/hints"
	"github.com/vinayprograms/recoverkit/patterns"
	"github.com/vinayprograms/recoverkit/phase"
	"github.com/vinayprograms/recoverkit/state"
)

// Section headers. Tests and callers match on these.
const (
	OfficialHeader   = "Official documentation:"
	CommunityHeader  = "Community solutions:"
	PreviousHeader   = "Previously attempted (failed):"
	TryDifferentLine = "Do not repeat these. Try a different approach."
	ExhaustedHeader  = "RETRIES EXHAUSTED"
)

// maxPrevious caps the failed-attempt list.
const maxPrevious = 3

// Input is everything the composer needs for one message.
type Input struct {
	Phase           int
	AttemptsInPhase int
	Limit           int
	TotalAttempts   int

	Category classify.Category
	Pattern  *patterns.Pattern
	Fix      string
	Hints    hints.Hints

	// Failed is the log of failed strategies, oldest first.
	Failed    []state.FixAttempt
	Exhausted bool
}

// Compose builds the message. Sections without content are left out.
// Hint sections are gated on phase: none in phase 1, official from phase 2,
// community added in phase 3.
func Compose(in Input) string {
	p := phase.Clamp(in.Phase)
	var sections []string

	sections = append(sections, fmt.Sprintf("Phase %d/3: %s", p, phase.Description(p)))

	if in.Limit > 0 {
		remaining := in.Limit - in.AttemptsInPhase
		if remaining < 0 {
			remaining = 0
		}
		sections = append(sections, fmt.Sprintf("Attempt %d/%d (%d remaining this phase)",
			in.AttemptsInPhase, in.Limit, remaining))
	}

	if line := detected(in); line != "" {
		sections = append(sections, line)
	}

	if in.Fix != "" {
		sections = append(sections, "Suggested fix: "+in.Fix)
	}

	if h := hintSection(p, in.Hints); h != "" {
		sections = append(sections, h)
	}

	if prev := previousSection(in.Failed); prev != "" {
		sections = append(sections, prev)
	}

	if in.Exhausted {
		sections = append(sections, exhaustedSection(in.TotalAttempts))
	}

	return strings.Join(sections, "\n\n")
}

func detected(in Input) string {
	if in.Pattern != nil {
		return fmt.Sprintf("Matched pattern: %s (%s, severity %s)",
			in.Pattern.Name, in.Pattern.Category, in.Pattern.Severity)
	}
	if in.Category != "" {
		return "Detected category: " + string(in.Category)
	}
	return ""
}

func hintSection(p int, h hints.Hints) string {
	if p < phase.Official {
		return ""
	}
	var b strings.Builder
	if len(h.Official) > 0 {
		writeList(&b, OfficialHeader, h.Official)
	}
	if p >= phase.Community && len(h.Community) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		writeList(&b, CommunityHeader, h.Community)
	}
	return strings.TrimRight(b.String(), "\n")
}

func previousSection(failed []state.FixAttempt) string {
	if len(failed) == 0 {
		return ""
	}
	if len(failed) > maxPrevious {
		failed = failed[len(failed)-maxPrevious:]
	}

	var b strings.Builder
	b.WriteString(PreviousHeader)
	b.WriteString("\n")
	for _, a := range failed {
		fmt.Fprintf(&b, "  - [phase %d] %s\n", a.Phase, a.Strategy)
	}
	b.WriteString(TryDifferentLine)
	return b.String()
}

func exhaustedSection(total int) string {
	var b strings.Builder
	b.WriteString(ExhaustedHeader)
	if total > 0 {
		fmt.Fprintf(&b, ": %d attempts across 3 phases did not fix this error.", total)
	} else {
		b.WriteString(": all 3 phases have been tried without fixing this error.")
	}
	b.WriteString("\nStop retrying automatically. Instead:\n")
	b.WriteString("  1. Debug manually: read the code and logs around the failure.\n")
	b.WriteString("  2. Ask the user for guidance or missing context.\n")
	b.WriteString("  3. Revert to the last known good state and take a different route.")
	return b.String()
}

func writeList(b *strings.Builder, header string, items []string) {
	b.WriteString(header)
	b.WriteString("\n")
	for _, it := range items {
		b.WriteString("  - ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}

// Default is the message used when the engine itself fails.
func Default() string {
	return "A tool error occurred. Read the error output, fix the underlying cause, and avoid repeating the same command unchanged."
}
