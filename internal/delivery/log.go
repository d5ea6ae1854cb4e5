package delivery

import (
	"context"

	"alertpipe/internal/types"
)

// Compile-time assertion that LogSink implements Sink.
var _ Sink = (*LogSink)(nil)

// LogSink records a delivery in the structured log instead of sending it
// anywhere. It stands in for gateway-backed media (email, sms, jabber,
// pagerduty) in environments where no provider is wired up, and doubles as
// a dry-run channel.
type LogSink struct {
	medium types.MediumType
	logger types.Logger
}

// NewLogSink creates a LogSink claiming the given medium type.
func NewLogSink(medium types.MediumType, logger types.Logger) *LogSink {
	return &LogSink{medium: medium, logger: logger}
}

// Type implements Sink.
func (s *LogSink) Type() types.MediumType {
	return s.medium
}

// Deliver implements Sink. It never fails.
func (s *LogSink) Deliver(_ context.Context, msg types.Message) error {
	s.logger.Info("message delivery",
		"medium", string(s.medium),
		"message_id", msg.ID,
		"contact_id", msg.ContactID,
		"address", msg.Address,
		"state", msg.Content["state"],
		"entity", msg.Content["entity"],
		"check", msg.Content["check"],
	)
	return nil
}
