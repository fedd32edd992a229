package ledger

import "errors"

var (
	// ErrDuplicateEvent means the (provider, external_id) key was already
	// recorded. Not a failure: the dispatcher acknowledges success so the
	// provider stops retrying.
	ErrDuplicateEvent = errors.New("duplicate provider event")

	// ErrUserNotFound means the event authenticated but references no known
	// account. The enclosing transaction rolls back, so the reservation is
	// released and a later retry is treated as pending.
	ErrUserNotFound = errors.New("user account not found")

	// ErrReversalTargetMissing means a reversal references an external_id
	// with no prior completed credit.
	ErrReversalTargetMissing = errors.New("reversal target transaction not found")

	// ErrAlreadyReversed means the credit was reversed before; a second
	// reversal is a no-op success.
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrInvalidEvent covers events that violate the adapter output contract
	// (negative points, unknown provider, missing ids).
	ErrInvalidEvent = errors.New("invalid provider event")
)
