package dispatch

import (
	"context"

	"github.com/google/uuid"

	"alertpipe/internal/notify"
	"alertpipe/internal/types"
)

// Materializer turns resolved (contact, medium) pairs into deliverable
// Message records. Contacts that were blackholed or resolved to an empty
// media set contribute nothing; they are a normal suppression outcome, not a
// failure or a placeholder.
type Materializer struct {
	engine  *Engine
	records RecordSource
	logger  types.Logger
}

// NewMaterializer creates a Materializer on top of the given engine. The
// record source is used once per notification to build the denormalized
// content payload shared by all of its messages.
func NewMaterializer(engine *Engine, records RecordSource, logger types.Logger) *Materializer {
	return &Materializer{
		engine:  engine,
		records: records,
		logger:  logger,
	}
}

// Messages resolves media for every contact and aggregates the results into
// one flat sequence of Messages, each carrying the contact's address for the
// medium and the notification's content view as payload.
//
// Contacts resolve independently; a store failure on one contact aborts the
// whole materialization so the notification is not partially dispatched.
func (m *Materializer) Messages(ctx context.Context, n *notify.Notification, contacts []*types.Contact, opts Options) ([]types.Message, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	// The content view is identical for every recipient; build it once.
	contents := n.Contents(ctx, m.records)

	var messages []types.Message
	for _, contact := range contacts {
		media, err := m.engine.ResolveMedia(ctx, n, contact, opts)
		if err != nil {
			return nil, err
		}
		for _, medium := range media {
			messages = append(messages, types.Message{
				ID:         uuid.New().String(),
				ContactID:  contact.ID,
				MediumType: medium.Type,
				Address:    medium.Address,
				Content:    contents,
			})
		}
	}

	m.logger.Debug("materialized messages",
		"check_id", n.CheckID,
		"contacts", len(contacts),
		"messages", len(messages),
	)
	return messages, nil
}
