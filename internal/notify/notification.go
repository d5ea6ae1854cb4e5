// Package notify defines the Notification entity: the ephemeral template
// describing one check state-change event. A Notification exists only long
// enough to traverse the dispatch queue and produce per-recipient Message
// records; it holds ids into the record store rather than object references,
// because the queue is a transient channel, not a store of record.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"alertpipe/internal/types"
)

// Notification describes one event occurrence on a monitored check.
type Notification struct {
	CheckID         string
	StateID         string
	PreviousStateID string
	StateDuration   int
	Duration        int
	Severity        types.Severity
	Type            types.NotificationType
	Time            time.Time
	Tags            types.TagSet
}

// envelope is the stable wire form of a queued Notification. Field names are
// a published contract; producers in other processes rely on them.
type envelope struct {
	CheckID         string   `json:"entity_check_id"`
	StateID         string   `json:"state_id"`
	StateDuration   int      `json:"state_duration"`
	PreviousStateID string   `json:"previous_state_id"`
	Severity        string   `json:"severity"`
	Type            string   `json:"type"`
	Time            int64    `json:"time"`
	Duration        int      `json:"duration"`
	Tags            []string `json:"tags"`
}

// MarshalJSON encodes the Notification in its wire form. Tags serialize as a
// sorted array; time as epoch seconds.
func (n *Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		CheckID:         n.CheckID,
		StateID:         n.StateID,
		StateDuration:   n.StateDuration,
		PreviousStateID: n.PreviousStateID,
		Severity:        string(n.Severity),
		Type:            string(n.Type),
		Time:            n.Time.Unix(),
		Duration:        n.Duration,
		Tags:            n.Tags.Slice(),
	})
}

// UnmarshalJSON rehydrates a Notification from its wire form, converting the
// wire field names back to entity attributes and deduplicating tags.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	n.CheckID = e.CheckID
	n.StateID = e.StateID
	n.StateDuration = e.StateDuration
	n.PreviousStateID = e.PreviousStateID
	n.Severity = types.Severity(e.Severity)
	n.Type = types.NotificationType(e.Type)
	n.Time = time.Unix(e.Time, 0).UTC()
	n.Duration = e.Duration
	n.Tags = types.NewTagSet(e.Tags...)
	return nil
}

// Validate enforces the presence invariant: CheckID, StateID, Severity, Type,
// and Time must be set, and durations must be non-negative. A Notification
// failing validation is rejected before being queued.
func (n *Notification) Validate() error {
	missing := ""
	switch {
	case n.CheckID == "":
		missing = "entity_check_id"
	case n.StateID == "":
		missing = "state_id"
	case n.Severity == "":
		missing = "severity"
	case n.Type == "":
		missing = "type"
	case n.Time.IsZero():
		missing = "time"
	}
	if missing != "" {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			"notification missing required field", nil).
			WithDetails(map[string]any{"field": missing})
	}
	if n.StateDuration < 0 {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			"notification state_duration must be non-negative", nil)
	}
	return nil
}

// RecordSource is the read-only record-store lookup surface the entity needs
// to denormalize itself. A miss is reported as a not-found error; callers that
// only want presentation data treat misses as absent rather than failing.
type RecordSource interface {
	CheckByID(ctx context.Context, id string) (*types.Check, error)
	StateByID(ctx context.Context, id string) (*types.CheckState, error)
}

// Contents resolves the notification's check and state references and returns
// the flat, denormalized view used as Message payload. A missing or
// unresolvable reference yields nil for the dependent fields rather than
// failing the whole view; this is best-effort presentation data, not a
// validity gate.
func (n *Notification) Contents(ctx context.Context, src RecordSource) map[string]any {
	var check *types.Check
	var state, prevState *types.CheckState

	if n.CheckID != "" {
		check, _ = src.CheckByID(ctx, n.CheckID)
	}
	if n.StateID != "" {
		state, _ = src.StateByID(ctx, n.StateID)
	}
	if n.PreviousStateID != "" {
		prevState, _ = src.StateByID(ctx, n.PreviousStateID)
	}

	contents := map[string]any{
		"state":             nil,
		"summary":           nil,
		"details":           nil,
		"count":             nil,
		"last_state":        nil,
		"last_summary":      nil,
		"entity":            nil,
		"check":             nil,
		"severity":          string(n.Severity),
		"duration":          n.Duration,
		"state_duration":    n.StateDuration,
		"time":              n.Time.Unix(),
		"tags":              n.Tags.Slice(),
		"notification_type": string(n.Type),
	}
	if state != nil {
		contents["state"] = state.State
		contents["summary"] = state.Summary
		contents["details"] = state.Details
		contents["count"] = state.Count
	}
	if prevState != nil {
		contents["last_state"] = prevState.State
		contents["last_summary"] = prevState.Summary
	}
	if check != nil {
		contents["entity"] = check.EntityName
		contents["check"] = check.Name
	}
	return contents
}
