// Package delivery routes materialized messages to their delivery channels.
// Each medium type is served by a Sink; the Router holds the sink registry
// and dispatches messages by medium. Outbound HTTP delivery goes through a
// shared resilient client enforcing circuit breaking and retries.
package delivery

import (
	"context"

	"alertpipe/internal/types"
)

// Sink delivers a single message over one medium type.
type Sink interface {
	// Type returns the medium this sink serves.
	Type() types.MediumType
	// Deliver sends the message. A returned error means the message was not
	// delivered; the caller decides whether to surface or absorb it.
	Deliver(ctx context.Context, msg types.Message) error
}

// Router dispatches messages to the sink registered for their medium type.
type Router struct {
	sinks  map[types.MediumType]Sink
	logger types.Logger
}

// NewRouter builds a Router over the given sinks. Later sinks for the same
// medium type override earlier ones.
func NewRouter(logger types.Logger, sinks ...Sink) *Router {
	byType := make(map[types.MediumType]Sink, len(sinks))
	for _, s := range sinks {
		byType[s.Type()] = s
	}
	return &Router{sinks: byType, logger: logger}
}

// Deliver routes the message to its medium's sink. A medium with no
// registered sink is a configuration gap, reported as delivery_unsupported_medium.
func (r *Router) Deliver(ctx context.Context, msg types.Message) error {
	sink, ok := r.sinks[msg.MediumType]
	if !ok {
		return types.NewAppError(types.ErrCodeDeliveryUnsupported,
			"no sink registered for medium", nil).
			WithDetails(map[string]any{"medium": string(msg.MediumType)})
	}
	return sink.Deliver(ctx, msg)
}

// Supports reports whether a sink is registered for the medium type.
func (r *Router) Supports(medium types.MediumType) bool {
	_, ok := r.sinks[medium]
	return ok
}
