package core

import (
	"fmt"
	"time"
)

// DueKind tags the variant held by a DueSpec.
type DueKind string

const (
	// DueFixed fires once at DueSpec.At.
	DueFixed DueKind = "fixed"
	// DueCron fires on every instant matching DueSpec.Rule.
	DueCron DueKind = "cron"
)

// DueSpec describes when a reminder fires. Exactly one variant is
// populated, selected by Kind.
type DueSpec struct {
	Kind DueKind   `json:"kind"`
	At   time.Time `json:"at,omitzero"`
	// Rule is a five-field cron expression or a descriptor such as @daily.
	// A CRON_TZ= prefix overrides TimeZone.
	Rule string `json:"rule,omitempty"`
	// TimeZone is the IANA zone the rule is evaluated in. Empty means UTC.
	TimeZone string `json:"tz,omitempty"`
}

// FixedAt returns a one-shot spec.
func FixedAt(at time.Time) DueSpec {
	return DueSpec{Kind: DueFixed, At: at.UTC()}
}

// CronRule returns a recurring spec evaluated in the named zone.
func CronRule(rule, tz string) DueSpec {
	return DueSpec{Kind: DueCron, Rule: rule, TimeZone: tz}
}

// IsRecurring reports whether the spec can fire more than once.
func (d DueSpec) IsRecurring() bool {
	return d.Kind == DueCron
}

func (d DueSpec) String() string {
	switch d.Kind {
	case DueFixed:
		return "at " + d.At.Format(time.RFC3339)
	case DueCron:
		if d.TimeZone != "" {
			return fmt.Sprintf("cron %q (%s)", d.Rule, d.TimeZone)
		}
		return fmt.Sprintf("cron %q", d.Rule)
	default:
		return fmt.Sprintf("unknown(%s)", d.Kind)
	}
}

// Validate reports whether the spec can ever produce an occurrence
// given well-formed input. It does not check that one exists.
func (d DueSpec) Validate() error {
	switch d.Kind {
	case DueFixed:
		if d.At.IsZero() {
			return fmt.Errorf("fixed due spec has no instant")
		}
		return nil
	case DueCron:
		_, err := ParseRule(d.Rule, d.TimeZone)
		return err
	default:
		return fmt.Errorf("unknown due spec kind %q", d.Kind)
	}
}
