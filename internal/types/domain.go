// Package types defines the shared domain model for the alertpipe
// notification-dispatch core: severities, checks and their states, contacts
// with their notification rules and media, and the Message records produced
// for delivery. It also holds the small cross-cutting interfaces (Logger,
// Clock) used throughout the platform.
package types

import "time"

// Severity is the aggregated importance of a notification. The four known
// labels form a strict priority ladder: critical > warning > unknown > ok.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityUnknown  Severity = "unknown"
	SeverityOK       Severity = "ok"
)

// TestNotificationsLabel is a synthetic sentinel, not a stored severity.
// When it appears in an escalation comparison it forces critical. It is
// never written to a Notification's Severity field.
const TestNotificationsLabel = "test_notifications"

// NotificationType categorizes the event occurrence a notification describes.
type NotificationType string

const (
	NotificationProblem         NotificationType = "problem"
	NotificationRecovery        NotificationType = "recovery"
	NotificationAcknowledgement NotificationType = "acknowledgement"
	NotificationTest            NotificationType = "test"
)

// MediumType identifies a delivery channel (the kind, not the address).
type MediumType string

const (
	MediumEmail     MediumType = "email"
	MediumSMS       MediumType = "sms"
	MediumJabber    MediumType = "jabber"
	MediumPagerDuty MediumType = "pagerduty"
	MediumWebhook   MediumType = "webhook"
)

// Check is a monitored check, looked up by id in the record store.
// Read-only from the dispatch core's perspective.
type Check struct {
	ID         string `json:"id" db:"id"`
	EntityName string `json:"entity_name" db:"entity_name"`
	Name       string `json:"name" db:"name"`
}

// CheckState is one recorded state of a check, looked up by id.
type CheckState struct {
	ID      string `json:"id" db:"id"`
	State   string `json:"state" db:"state"`
	Summary string `json:"summary" db:"summary"`
	Details string `json:"details" db:"details"`
	Count   int    `json:"count" db:"count"`
}

// Media is one configured delivery endpoint on a contact. A contact has at
// most one Media entry per type.
type Media struct {
	Type    MediumType `json:"type" db:"type"`
	Address string     `json:"address" db:"address"`
}

// Rule is the capability interface evaluated by the rule-matching engine.
// A rule that has passed the relevance and time-window filters for a given
// notification and contact is called a matcher. New rule kinds implement
// this interface; the engine's control flow never changes per kind.
type Rule interface {
	// MatchEntity reports whether the rule is scoped to the named entity.
	MatchEntity(entityName string) bool

	// MatchTags reports whether the rule's tag scope overlaps the event tags.
	MatchTags(tags TagSet) bool

	// IsSpecific reports whether the rule is scoped to particular entities
	// or tags. A rule with neither is general and applies to everything.
	IsSpecific() bool

	// IsOccurringNow reports whether the rule's time window permits
	// notifications at the given instant, evaluated in loc (the contact's
	// timezone, or the platform default when the contact has none).
	IsOccurringNow(now time.Time, loc *time.Location) bool

	// Blackhole reports whether the rule suppresses all media for the
	// given severity.
	Blackhole(severity Severity) bool

	// MediaForSeverity returns the medium types this rule enables for the
	// given severity.
	MediaForSeverity(severity Severity) []MediumType
}

// Contact is a notification recipient: zero or more notification rules and
// zero or more configured media. Rules are unordered; engine results must
// not depend on their iteration order.
type Contact struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Timezone string  `json:"timezone" db:"timezone"`
	Rules    []Rule  `json:"-" db:"-"`
	Media    []Media `json:"media" db:"-"`
}

// Location resolves the contact's timezone, falling back to def when the
// contact has none configured or the name does not parse.
func (c *Contact) Location(def *time.Location) *time.Location {
	if c.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return def
	}
	return loc
}

// MediumByType returns the contact's configured Media entry for the given
// type, if any.
func (c *Contact) MediumByType(t MediumType) (Media, bool) {
	for _, m := range c.Media {
		if m.Type == t {
			return m, true
		}
	}
	return Media{}, false
}

// Message is one deliverable unit: a specific contact address on a specific
// channel, carrying the notification's denormalized content view. Messages
// are created fresh per dispatch and owned solely by the delivery pipeline;
// this core never persists them.
type Message struct {
	ID         string         `json:"id"`
	ContactID  string         `json:"contact_id"`
	MediumType MediumType     `json:"medium_type"`
	Address    string         `json:"address"`
	Content    map[string]any `json:"content"`
}
