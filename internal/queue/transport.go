// Package queue provides the durable notification queue: a FIFO data list
// paired with a signal list so consumers can block without polling. A logical
// queue Q is realized as the data list "Q" plus the signal list "Q_actions";
// a push appends one data entry and one signal token atomically, and each
// WaitForSignal consumes exactly one token.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"iter"

	"alertpipe/internal/notify"
	"alertpipe/internal/types"
)

// SignalSuffix is appended to a queue name to form its signal list name.
const SignalSuffix = "_actions"

// SignalToken is the opaque wake marker pushed onto the signal list. Its
// value carries no information.
const SignalToken = "+"

// ErrEmpty is returned by Lists.Pop when the list has no entries.
var ErrEmpty = errors.New("queue: list empty")

// Lists abstracts the durable list primitives the transport needs. RedisLists
// is the production implementation; MemoryLists backs tests and local runs.
type Lists interface {
	// Push atomically appends the payload to the data list and one signal
	// token to the signal list. Either both land or neither does.
	Push(ctx context.Context, dataKey, signalKey string, payload []byte) error

	// Pop removes and returns the oldest entry of the list, or ErrEmpty.
	// A single entry is popped by exactly one caller.
	Pop(ctx context.Context, key string) ([]byte, error)

	// BlockPop blocks until the list has at least one entry, then removes
	// exactly one. Context cancellation unblocks it without consuming
	// anything.
	BlockPop(ctx context.Context, key string) error

	// Len returns the number of entries on the list.
	Len(ctx context.Context, key string) (int64, error)
}

// Transport is the notification queue built on a Lists backend. It owns the
// wire encoding of queued notifications and the data/signal pairing contract.
type Transport struct {
	lists  Lists
	logger types.Logger
}

// NewTransport creates a Transport on the given list backend.
func NewTransport(lists Lists, logger types.Logger) *Transport {
	return &Transport{lists: lists, logger: logger}
}

// Push validates and enqueues a notification. Validation failures are
// surfaced to the caller and nothing is queued. A serialization failure is
// logged and the push becomes a no-op: no partial push, so a waiting consumer
// is never woken without a corresponding data item, and a data item never
// sits un-signalled. A transport failure is fatal and propagates.
func (t *Transport) Push(ctx context.Context, queue string, n *notify.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		t.logger.Warn("error serializing notification, dropping",
			"queue", queue,
			"check_id", n.CheckID,
			"error", err.Error(),
		)
		return nil
	}

	if err := t.lists.Push(ctx, queue, queue+SignalSuffix, payload); err != nil {
		return types.NewAppError(types.ErrCodeQueueUnreachable, "failed to push notification", err).
			WithDetails(map[string]any{"queue": queue})
	}
	return nil
}

// Drain produces a lazy, finite sequence of rehydrated notifications by
// popping the head of the data list until it reports empty. Entries that fail
// to deserialize are logged and skipped; the drain continues with the next
// item. A transport failure yields a nil notification with the error and
// terminates the sequence. Drain itself never blocks.
func (t *Transport) Drain(ctx context.Context, queue string) iter.Seq2[*notify.Notification, error] {
	return func(yield func(*notify.Notification, error) bool) {
		for {
			raw, err := t.lists.Pop(ctx, queue)
			if errors.Is(err, ErrEmpty) {
				return
			}
			if err != nil {
				yield(nil, types.NewAppError(types.ErrCodeQueueUnreachable, "failed to pop notification", err).
					WithDetails(map[string]any{"queue": queue}))
				return
			}

			var n notify.Notification
			if err := json.Unmarshal(raw, &n); err != nil {
				t.logger.Warn("error deserializing notification, skipping",
					"queue", queue,
					"error", err.Error(),
				)
				continue
			}

			if !yield(&n, nil) {
				return
			}
		}
	}
}

// WaitForSignal blocks the calling consumer until at least one signal token
// exists on the queue's signal list, consumes exactly one, and returns. When
// consumers race, each successful call consumes one token. Cancelling the
// context unblocks the wait without consuming a token and returns the
// context's error.
func (t *Transport) WaitForSignal(ctx context.Context, queue string) error {
	err := t.lists.BlockPop(ctx, queue+SignalSuffix)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.NewAppError(types.ErrCodeQueueUnreachable, "failed waiting for queue signal", err).
		WithDetails(map[string]any{"queue": queue})
}

// Depth returns the number of notifications currently on the data list.
// Used for readiness reporting; the value is advisory under concurrency.
func (t *Transport) Depth(ctx context.Context, queue string) (int64, error) {
	return t.lists.Len(ctx, queue)
}
