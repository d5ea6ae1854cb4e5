package dispatch

import (
	"context"
	"errors"
	"sort"
	"time"

	"alertpipe/internal/notify"
	"alertpipe/internal/types"
)

// RecordSource is the read-only record-store surface the engine needs:
// resolving a notification's check (for entity matching) and state (for the
// suppression policy's context).
type RecordSource interface {
	CheckByID(ctx context.Context, id string) (*types.Check, error)
	StateByID(ctx context.Context, id string) (*types.CheckState, error)
}

// Options carries per-dispatch settings for media resolution.
type Options struct {
	// DefaultTimezone is used for time-window evaluation when the contact
	// has no explicit timezone. Nil means UTC.
	DefaultTimezone *time.Location
}

func (o Options) defaultLocation() *time.Location {
	if o.DefaultTimezone != nil {
		return o.DefaultTimezone
	}
	return time.UTC
}

// Engine resolves the final delivery channel set for one contact and one
// notification. It is stateless and side-effect-free: all decisions are
// deterministic functions of the notification, the contact's rules and media,
// and the injected suppression policy. Rule iteration order never affects the
// result; the only ordered decision is the explicit specificity tie-break.
type Engine struct {
	records RecordSource
	policy  SuppressionPolicy
	clock   types.Clock
	logger  types.Logger
}

// NewEngine creates an Engine. The clock abstraction allows deterministic
// testing of time-window evaluation; the policy is the contact-level
// suppression strategy (use AllowAll when none applies).
func NewEngine(records RecordSource, policy SuppressionPolicy, clock types.Clock, logger types.Logger) *Engine {
	return &Engine{
		records: records,
		policy:  policy,
		clock:   clock,
		logger:  logger,
	}
}

// ResolveMedia computes the contact's addressable media for the notification.
//
// Each step strictly narrows the candidate set or terminates; later steps
// never reconsider rejected rules:
//  1. A contact with zero rules gets all of its configured media.
//  2. A rule becomes a candidate matcher iff it is topically relevant
//     (matches the check's entity, or the event tags, or is general) and its
//     time window currently permits notifications.
//  3. If any candidate matcher is specific, general matchers are discarded:
//     an entity/tag-scoped rule expresses more precise operator intent than a
//     catch-all.
//  4. If any surviving matcher blackholes the notification's severity, the
//     contact receives nothing. This is normal suppression, not an error.
//  5. The union of the survivors' media for the severity is filtered through
//     the contact-level suppression policy.
//  6. The remaining medium types are intersected with the contact's actually
//     configured media, sorted by type for determinism.
//
// An empty result is the expected terminal state for "no notification sent".
func (e *Engine) ResolveMedia(ctx context.Context, n *notify.Notification, contact *types.Contact, opts Options) ([]types.Media, error) {
	log := e.logger.With("contact_id", contact.ID, "check_id", n.CheckID, "severity", string(n.Severity))

	// Step 1: no-rules shortcut.
	if len(contact.Rules) == 0 {
		log.Debug("contact has no rules, all media eligible", "media_count", len(contact.Media))
		return sortedMedia(contact.Media), nil
	}

	check, state, err := e.lookupContext(ctx, n)
	if err != nil {
		return nil, err
	}
	entityName := ""
	if check != nil {
		entityName = check.EntityName
	}

	// Step 2: candidate matchers after entity/tag relevance and time window.
	now := e.clock.Now()
	loc := contact.Location(opts.defaultLocation())

	var matchers []types.Rule
	for _, rule := range contact.Rules {
		relevant := rule.MatchEntity(entityName) || rule.MatchTags(n.Tags) || !rule.IsSpecific()
		if relevant && rule.IsOccurringNow(now, loc) {
			matchers = append(matchers, rule)
		}
	}
	log.Debug("matchers after time, entity and tags", "count", len(matchers))

	// Step 3: discard general matchers when specific matchers remain.
	anySpecific := false
	for _, m := range matchers {
		if m.IsSpecific() {
			anySpecific = true
			break
		}
	}
	if anySpecific {
		specific := matchers[:0]
		for _, m := range matchers {
			if m.IsSpecific() {
				specific = append(specific, m)
			}
		}
		matchers = specific
	}

	// Step 4: blackhole suppression terminates the contact entirely.
	for _, m := range matchers {
		if m.Blackhole(n.Severity) {
			log.Debug("blackhole matcher present, dropping all media")
			return nil, nil
		}
	}

	// Step 5: union of enabled media across matchers, minus policy drops.
	enabled := make(map[types.MediumType]struct{})
	for _, m := range matchers {
		for _, mt := range m.MediaForSeverity(n.Severity) {
			enabled[mt] = struct{}{}
		}
	}
	for mt := range enabled {
		drop := e.policy.DropNotifications(ctx, DropQuery{
			Contact: contact,
			Medium:  mt,
			Check:   check,
			State:   state,
		})
		if drop {
			log.Debug("medium suppressed by contact policy", "medium", string(mt))
			delete(enabled, mt)
		}
	}

	// Step 6: intersect with the contact's configured media.
	var resolved []types.Media
	for _, medium := range contact.Media {
		if _, ok := enabled[medium.Type]; ok {
			resolved = append(resolved, medium)
		}
	}
	return sortedMedia(resolved), nil
}

// lookupContext resolves the notification's check and state references.
// Missing records degrade to nil (entity matching then sees an empty name);
// any other store failure aborts resolution.
func (e *Engine) lookupContext(ctx context.Context, n *notify.Notification) (*types.Check, *types.CheckState, error) {
	check, err := e.records.CheckByID(ctx, n.CheckID)
	if err != nil && !isNotFound(err) {
		return nil, nil, err
	}
	state, err := e.records.StateByID(ctx, n.StateID)
	if err != nil && !isNotFound(err) {
		return nil, nil, err
	}
	return check, state, nil
}

// isNotFound reports whether the error is a record-store lookup miss.
func isNotFound(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case types.ErrCodeNotFoundCheck, types.ErrCodeNotFoundState, types.ErrCodeNotFoundContact:
		return true
	}
	return false
}

// sortedMedia returns the media sorted by type so results are stable
// regardless of the contact's media ordering.
func sortedMedia(media []types.Media) []types.Media {
	if len(media) == 0 {
		return nil
	}
	out := make([]types.Media, len(media))
	copy(out, media)
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
