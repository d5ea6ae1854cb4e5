package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertpipe/internal/dispatch"
	"alertpipe/internal/records"
	"alertpipe/internal/types"
)

func newMaterializer(store *records.MemoryStore) *dispatch.Materializer {
	engine := newEngine(store, dispatch.AllowAll{})
	return dispatch.NewMaterializer(engine, store, nopLogger{})
}

func TestMessagesSpecificRuleSingleMedium(t *testing.T) {
	// One contact with a web01-scoped rule enabling email for critical:
	// a critical notification materializes exactly one email message.
	store := seededStore()
	contact := &types.Contact{
		ID:    "c1",
		Rules: []types.Rule{entityRule("web01", types.MediumEmail)},
		Media: []types.Media{
			{Type: types.MediumEmail, Address: "a@x.com"},
			{Type: types.MediumSMS, Address: "+1555"},
		},
	}

	msgs, err := newMaterializer(store).Messages(context.Background(),
		problemNotification(types.SeverityCritical), []*types.Contact{contact}, dispatch.Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "c1", msg.ContactID)
	assert.Equal(t, types.MediumEmail, msg.MediumType)
	assert.Equal(t, "a@x.com", msg.Address)
	assert.Equal(t, "critical", msg.Content["state"])
	assert.Equal(t, "web01", msg.Content["entity"])
	assert.Equal(t, "HTTP Port 80", msg.Content["check"])
}

func TestMessagesSeverityMismatchYieldsNone(t *testing.T) {
	// The same contact's rule offers nothing for warning.
	store := seededStore()
	store.PutState(&types.CheckState{ID: "state-3", State: "warning", Summary: "slow"})
	contact := &types.Contact{
		ID:    "c1",
		Rules: []types.Rule{entityRule("web01", types.MediumEmail)},
		Media: []types.Media{{Type: types.MediumEmail, Address: "a@x.com"}},
	}

	n := problemNotification(types.SeverityWarning)
	n.StateID = "state-3"

	msgs, err := newMaterializer(store).Messages(context.Background(), n, []*types.Contact{contact}, dispatch.Options{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessagesFanOutAcrossContacts(t *testing.T) {
	store := seededStore()
	ruled := &types.Contact{
		ID:    "c1",
		Rules: []types.Rule{entityRule("web01", types.MediumEmail, types.MediumSMS)},
		Media: []types.Media{
			{Type: types.MediumEmail, Address: "a@x.com"},
			{Type: types.MediumSMS, Address: "+1555"},
		},
	}
	ruleless := &types.Contact{
		ID:    "c2",
		Media: []types.Media{{Type: types.MediumJabber, Address: "b@jabber"}},
	}
	blackholed := &types.Contact{
		ID: "c3",
		Rules: []types.Rule{&dispatch.StandardRule{
			ID:         "bh",
			Blackholes: map[types.Severity]bool{types.SeverityCritical: true},
		}},
		Media: []types.Media{{Type: types.MediumEmail, Address: "c@x.com"}},
	}

	msgs, err := newMaterializer(store).Messages(context.Background(),
		problemNotification(types.SeverityCritical),
		[]*types.Contact{ruled, ruleless, blackholed}, dispatch.Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	byContact := map[string][]types.MediumType{}
	for _, m := range msgs {
		byContact[m.ContactID] = append(byContact[m.ContactID], m.MediumType)
	}
	assert.ElementsMatch(t, []types.MediumType{types.MediumEmail, types.MediumSMS}, byContact["c1"])
	assert.Equal(t, []types.MediumType{types.MediumJabber}, byContact["c2"])
	assert.NotContains(t, byContact, "c3")
}

func TestMessagesSharedContents(t *testing.T) {
	// Every message for one notification carries the same content view.
	store := seededStore()
	a := &types.Contact{ID: "c1", Media: []types.Media{{Type: types.MediumEmail, Address: "a@x.com"}}}
	b := &types.Contact{ID: "c2", Media: []types.Media{{Type: types.MediumSMS, Address: "+1555"}}}

	msgs, err := newMaterializer(store).Messages(context.Background(),
		problemNotification(types.SeverityCritical), []*types.Contact{a, b}, dispatch.Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[0].Content["state"], msgs[1].Content["state"])
	assert.Equal(t, msgs[0].Content["time"], msgs[1].Content["time"])
}

func TestMessagesNoContacts(t *testing.T) {
	msgs, err := newMaterializer(seededStore()).Messages(context.Background(),
		problemNotification(types.SeverityCritical), nil, dispatch.Options{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessagesUniqueIDs(t *testing.T) {
	store := seededStore()
	contact := &types.Contact{
		ID: "c1",
		Media: []types.Media{
			{Type: types.MediumEmail, Address: "a@x.com"},
			{Type: types.MediumSMS, Address: "+1555"},
		},
	}

	msgs, err := newMaterializer(store).Messages(context.Background(),
		problemNotification(types.SeverityCritical), []*types.Contact{contact}, dispatch.Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}
