package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertpipe/internal/notify"
	"alertpipe/internal/records"
	"alertpipe/internal/types"
)

func baseNotification() *notify.Notification {
	return &notify.Notification{
		CheckID:         "check-1",
		StateID:         "state-2",
		PreviousStateID: "state-1",
		StateDuration:   300,
		Duration:        900,
		Severity:        types.SeverityWarning,
		Type:            types.NotificationProblem,
		Time:            time.Unix(1700000000, 0).UTC(),
		Tags:            types.NewTagSet("web", "production"),
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*notify.Notification)
		field  string
	}{
		{"missing check id", func(n *notify.Notification) { n.CheckID = "" }, "entity_check_id"},
		{"missing state id", func(n *notify.Notification) { n.StateID = "" }, "state_id"},
		{"missing severity", func(n *notify.Notification) { n.Severity = "" }, "severity"},
		{"missing type", func(n *notify.Notification) { n.Type = "" }, "type"},
		{"missing time", func(n *notify.Notification) { n.Time = time.Time{} }, "time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := baseNotification()
			tc.mutate(n)

			err := n.Validate()
			require.Error(t, err)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeValidationMissingField, appErr.Code)
			assert.Equal(t, tc.field, appErr.Details["field"])
		})
	}
}

func TestValidateAcceptsMinimalNotification(t *testing.T) {
	n := baseNotification()
	n.PreviousStateID = "" // previous state is optional
	n.Tags = nil
	require.NoError(t, n.Validate())
}

func TestWireFormFieldNames(t *testing.T) {
	data, err := json.Marshal(baseNotification())
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	for _, field := range []string{
		"entity_check_id", "state_id", "state_duration", "previous_state_id",
		"severity", "type", "time", "duration", "tags",
	} {
		assert.Contains(t, wire, field)
	}
	assert.EqualValues(t, 1700000000, wire["time"], "time is epoch seconds")
}

func TestWireRoundTripTagsAsSet(t *testing.T) {
	// Duplicate tags in incoming wire data collapse to a set.
	raw := `{"entity_check_id":"check-1","state_id":"state-2","state_duration":60,
		"previous_state_id":"","severity":"critical","type":"problem",
		"time":1700000000,"duration":0,"tags":["db","web","db"]}`

	var n notify.Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &n))

	assert.Equal(t, types.NewTagSet("db", "web"), n.Tags)
	assert.Equal(t, types.SeverityCritical, n.Severity)
	assert.True(t, n.Time.Equal(time.Unix(1700000000, 0)))
}

func TestContentsResolvesReferences(t *testing.T) {
	store := records.NewMemoryStore()
	store.PutCheck(&types.Check{ID: "check-1", EntityName: "web01", Name: "HTTP Port 80"})
	store.PutState(&types.CheckState{ID: "state-2", State: "warning", Summary: "latency high", Details: "p99 1.2s", Count: 3})
	store.PutState(&types.CheckState{ID: "state-1", State: "ok", Summary: "all good"})

	n := baseNotification()
	contents := n.Contents(context.Background(), store)

	assert.Equal(t, "warning", contents["state"])
	assert.Equal(t, "latency high", contents["summary"])
	assert.Equal(t, "p99 1.2s", contents["details"])
	assert.Equal(t, 3, contents["count"])
	assert.Equal(t, "ok", contents["last_state"])
	assert.Equal(t, "all good", contents["last_summary"])
	assert.Equal(t, "web01", contents["entity"])
	assert.Equal(t, "HTTP Port 80", contents["check"])
	assert.Equal(t, "warning", contents["severity"])
	assert.Equal(t, 900, contents["duration"])
	assert.Equal(t, 300, contents["state_duration"])
	assert.EqualValues(t, 1700000000, contents["time"])
	assert.Equal(t, []string{"production", "web"}, contents["tags"])
	assert.Equal(t, "problem", contents["notification_type"])
}

func TestContentsDegradesOnMissingReferences(t *testing.T) {
	// Empty store: every lookup misses. The view degrades to nils instead
	// of failing.
	n := baseNotification()
	contents := n.Contents(context.Background(), records.NewMemoryStore())

	for _, field := range []string{"state", "summary", "details", "count", "last_state", "last_summary", "entity", "check"} {
		assert.Nil(t, contents[field], "field %s should degrade to nil", field)
	}

	// The notification's own attributes survive.
	assert.Equal(t, "warning", contents["severity"])
	assert.Equal(t, "problem", contents["notification_type"])
}

func TestContentsSkipsAbsentPreviousState(t *testing.T) {
	store := records.NewMemoryStore()
	store.PutCheck(&types.Check{ID: "check-1", EntityName: "web01", Name: "HTTP"})
	store.PutState(&types.CheckState{ID: "state-2", State: "critical"})

	n := baseNotification()
	n.PreviousStateID = ""
	contents := n.Contents(context.Background(), store)

	assert.Equal(t, "critical", contents["state"])
	assert.Nil(t, contents["last_state"])
	assert.Nil(t, contents["last_summary"])
}
