// Package dispatch implements the rule-matching engine at the core of the
// notification pipeline: given a queued notification and a contact, it
// computes the effective set of delivery channels after applying time-window,
// entity/tag, specificity, blackhole, and severity filters, then materializes
// the survivors into deliverable Message records.
package dispatch

import (
	"time"

	"alertpipe/internal/types"
)

// Compile-time assertion that StandardRule implements types.Rule.
var _ types.Rule = (*StandardRule)(nil)

// StandardRule is the standard entity/tag-scoped notification rule. A rule
// with no entities and no tags is general: it applies to every notification
// its time restrictions allow. Severity routing is a map from severity to the
// medium types the rule enables; blackholed severities force zero delivery
// for the contact regardless of other matching rules.
type StandardRule struct {
	ID               string
	Entities         []string
	Tags             types.TagSet
	TimeRestrictions []TimeRestriction
	MediaBySeverity  map[types.Severity][]types.MediumType
	Blackholes       map[types.Severity]bool
}

// MatchEntity reports whether the rule is scoped to the named entity.
func (r *StandardRule) MatchEntity(entityName string) bool {
	if entityName == "" {
		return false
	}
	for _, e := range r.Entities {
		if e == entityName {
			return true
		}
	}
	return false
}

// MatchTags reports whether the rule's tag scope overlaps the event tags.
// Any overlap counts; the rule's tags need not be a subset of the event's.
func (r *StandardRule) MatchTags(tags types.TagSet) bool {
	return r.Tags.Intersects(tags)
}

// IsSpecific reports whether the rule is scoped to particular entities or
// tags.
func (r *StandardRule) IsSpecific() bool {
	return len(r.Entities) > 0 || len(r.Tags) > 0
}

// IsOccurringNow reports whether the rule's time restrictions permit
// notifications at the given instant, evaluated in loc. A rule with no
// restrictions is always occurring.
func (r *StandardRule) IsOccurringNow(now time.Time, loc *time.Location) bool {
	if len(r.TimeRestrictions) == 0 {
		return true
	}
	local := now.In(loc)
	for _, tr := range r.TimeRestrictions {
		if tr.Contains(local) {
			return true
		}
	}
	return false
}

// Blackhole reports whether the rule suppresses all media for the severity.
func (r *StandardRule) Blackhole(severity types.Severity) bool {
	return r.Blackholes[severity]
}

// MediaForSeverity returns a copy of the medium types the rule enables for
// the given severity.
func (r *StandardRule) MediaForSeverity(severity types.Severity) []types.MediumType {
	media := r.MediaBySeverity[severity]
	if len(media) == 0 {
		return nil
	}
	out := make([]types.MediumType, len(media))
	copy(out, media)
	return out
}
