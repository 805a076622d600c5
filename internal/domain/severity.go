package domain

import (
	"fmt"
	"strings"
)

// Severity classifies how serious a ban is. It is consumed by review
// tooling only; enforcement never branches on it.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityMinor  Severity = "minor"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type UnknownSeverityError struct {
	Token string
}

func (e *UnknownSeverityError) Error() string {
	return fmt.Sprintf("unknown severity %q", e.Token)
}

// ParseSeverity maps a textual token onto the closed severity set,
// case-insensitively.
func ParseSeverity(token string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "none":
		return SeverityNone, nil
	case "minor":
		return SeverityMinor, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return "", &UnknownSeverityError{Token: token}
	}
}

// Severities lists every recognized value, in escalation order. Used for
// completion hints and usage text.
func Severities() []Severity {
	return []Severity{SeverityNone, SeverityMinor, SeverityMedium, SeverityHigh}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityMinor, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}
