// Package services defines the business logic of the thanks service: the
// session-scoped dedup cache, the thank orchestrator and the link policy.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Request-shape errors.
var (
	// ErrInvalidParams is returned unless exactly one of rev/log is given and
	// positive.
	ErrInvalidParams = errors.New("exactly one of rev or log must be given")

	// ErrNotLoggedIn is returned when the sender is anonymous or temporary.
	ErrNotLoggedIn = errors.New("must be logged in to send thanks")
)

// Target resolution errors.
var (
	// ErrInvalidRevision indicates a missing revision (or the reserved id 1).
	ErrInvalidRevision = errors.New("invalid revision")

	// ErrRevisionDeleted indicates the revision's text has been deleted.
	ErrRevisionDeleted = errors.New("revision has been deleted")

	// ErrInvalidLogID indicates the log entry does not exist.
	ErrInvalidLogID = errors.New("invalid log id")

	// ErrInvalidLogType indicates the log entry's type cannot be thanked.
	ErrInvalidLogType = errors.New("log type cannot be thanked")

	// ErrLogDeleted indicates the log entry's performer has been suppressed.
	ErrLogDeleted = errors.New("log entry has been deleted")
)

// Policy errors.
var (
	// ErrBlocked is returned when the sender is blocked from thanking.
	ErrBlocked = errors.New("blocked from sending thanks")

	// ErrBlockedFromTitle is returned when the sender is blocked from the
	// thanked page.
	ErrBlockedFromTitle = errors.New("blocked from this page")

	// ErrSelfThanks is returned when sender and recipient are the same user.
	ErrSelfThanks = errors.New("cannot thank yourself")

	// ErrInvalidRecipient is returned when the recipient cannot receive
	// thanks (hidden, unregistered, system or bot account).
	ErrInvalidRecipient = errors.New("recipient cannot receive thanks")
)

// Infrastructure errors.
var (
	// ErrNotifyFailed is returned after a thanks was recorded durably but the
	// notification could not be handed off. The cache already reflects the
	// thanks, so a retry reports success without a second record.
	ErrNotifyFailed = errors.New("thanks recorded but notification failed")
)
