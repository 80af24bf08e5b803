package core

import (
	"fmt"
	"strings"
)

// Priority ranks a reminder. The zero value is treated as medium.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority accepts full names and their short aliases, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "h":
		return PriorityHigh, nil
	case "", "medium", "med", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("%w: %q (expected high, medium or low)", ErrInvalidPriority, s)
	}
}

// Normalize maps the zero value to PriorityMedium.
func (p Priority) Normalize() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// Label is the upper-case form used in notification titles.
func (p Priority) Label() string {
	return strings.ToUpper(string(p.Normalize()))
}
