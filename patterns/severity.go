package patterns

import "strings"

// Severity ranks how disruptive a matched failure is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

var severityNames = [...]string{"info", "warning", "error", "critical"}

func (s Severity) String() string {
	if s < SeverityInfo || s > SeverityCritical {
		return "unknown"
	}
	return severityNames[s]
}

// ParseSeverity converts a name into a Severity. Unrecognised names yield info.
func ParseSeverity(name string) Severity {
	for i, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Severity(i)
		}
	}
	return SeverityInfo
}
