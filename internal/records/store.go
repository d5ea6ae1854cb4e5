// Package records provides read-only access to the check/contact/rule/media
// record store consumed by the dispatch core. During dispatch the store is
// never written; the only mutation the core performs is queue push/pop.
package records

import (
	"context"

	"alertpipe/internal/types"
)

// Store is the lookup contract the dispatch pipeline consumes. A missing
// record is reported as an AppError with a not_found_* code; callers that
// treat misses as benign (the content view, entity matching) degrade instead
// of failing.
type Store interface {
	// CheckByID returns the check with the given id.
	CheckByID(ctx context.Context, id string) (*types.Check, error)

	// StateByID returns the check state with the given id.
	StateByID(ctx context.Context, id string) (*types.CheckState, error)

	// ContactsForCheck returns the contacts subscribed to the check, with
	// their rules and media hydrated.
	ContactsForCheck(ctx context.Context, checkID string) ([]*types.Contact, error)
}

func notFoundCheck(id string) error {
	return types.NewAppError(types.ErrCodeNotFoundCheck, "check not found", nil).
		WithDetails(map[string]any{"id": id})
}

func notFoundState(id string) error {
	return types.NewAppError(types.ErrCodeNotFoundState, "check state not found", nil).
		WithDetails(map[string]any{"id": id})
}
