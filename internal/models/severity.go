package models

import "fmt"

// Severity classifies the version impact of a change.
// Higher values take precedence when resolving the next version.
type Severity int

const (
	SeverityPatch Severity = iota
	SeverityMinor
	SeverityMajor
)

// ParseSeverity parses a severity name as it appears in the rules file.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "patch":
		return SeverityPatch, nil
	case "minor":
		return SeverityMinor, nil
	case "major":
		return SeverityMajor, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want major, minor or patch)", s)
}

func (s Severity) String() string {
	switch s {
	case SeverityMajor:
		return "major"
	case SeverityMinor:
		return "minor"
	default:
		return "patch"
	}
}
