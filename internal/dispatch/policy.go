package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"alertpipe/internal/types"
)

// DropQuery describes one candidate delivery the suppression policy may veto:
// a medium type for a contact, in the context of the check and state being
// notified.
type DropQuery struct {
	Contact *types.Contact
	Medium  types.MediumType
	Check   *types.Check
	State   *types.CheckState
}

// SuppressionPolicy is the contact-level rate/maintenance suppression hook.
// It is deliberately opaque to the matching engine: scheduling, maintenance
// windows, and rate limits live behind this interface so the engine stays a
// pure function of (notification, contact, rule set, policy).
type SuppressionPolicy interface {
	// DropNotifications reports whether delivery on the queried medium
	// should be suppressed for this contact.
	DropNotifications(ctx context.Context, q DropQuery) bool
}

// AllowAll is the no-op policy: nothing is suppressed.
type AllowAll struct{}

// DropNotifications always returns false.
func (AllowAll) DropNotifications(context.Context, DropQuery) bool { return false }

// Compile-time assertions.
var (
	_ SuppressionPolicy = AllowAll{}
	_ SuppressionPolicy = (*IntervalPolicy)(nil)
)

// IntervalPolicy is a do-not-repeat policy: once a contact has been notified
// about a check on a medium, further notifications on that medium are
// suppressed until the interval elapses. The last-notified markers live in
// Redis with a TTL equal to the interval, so suppression expires on its own
// and survives worker restarts.
type IntervalPolicy struct {
	rdb      redis.UniversalClient
	interval time.Duration
	logger   types.Logger
}

// NewIntervalPolicy creates an IntervalPolicy with the given Redis client and
// minimum re-notification interval.
func NewIntervalPolicy(rdb redis.UniversalClient, interval time.Duration, logger types.Logger) *IntervalPolicy {
	return &IntervalPolicy{rdb: rdb, interval: interval, logger: logger}
}

// DropNotifications reports whether a do-not-repeat marker is outstanding for
// the contact/check/medium triple. Redis errors fail open: a broken
// suppression store must not silence alerts.
func (p *IntervalPolicy) DropNotifications(ctx context.Context, q DropQuery) bool {
	if q.Contact == nil || q.Check == nil {
		return false
	}
	n, err := p.rdb.Exists(ctx, p.key(q.Contact.ID, q.Check.ID, q.Medium)).Result()
	if err != nil {
		p.logger.Warn("interval policy lookup failed, delivering anyway",
			"contact_id", q.Contact.ID,
			"check_id", q.Check.ID,
			"medium", string(q.Medium),
			"error", err.Error(),
		)
		return false
	}
	return n > 0
}

// MarkNotified records that the contact was just notified about the check on
// the medium, starting the suppression interval.
func (p *IntervalPolicy) MarkNotified(ctx context.Context, contactID, checkID string, medium types.MediumType) error {
	return p.rdb.Set(ctx, p.key(contactID, checkID, medium), "1", p.interval).Err()
}

func (p *IntervalPolicy) key(contactID, checkID string, medium types.MediumType) string {
	return fmt.Sprintf("drop_notifications:%s:%s:%s", contactID, checkID, medium)
}
