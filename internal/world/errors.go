package world

import "errors"

// Error taxonomy shared across the engine. Player-facing errors
// (ErrUnintelligibleOrder, ErrForbiddenAction) are recoverable by
// rephrasing; ErrStaleRevision is retried internally and surfaces as
// ErrConflict once the retry bound is exhausted.
var (
	// ErrNotFound means the requested country, project or relation does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOwner means the owner already rules a country.
	ErrDuplicateOwner = errors.New("owner already has a country")

	// ErrUnintelligibleOrder means the order could not be mapped to a
	// structured action. The player should rephrase.
	ErrUnintelligibleOrder = errors.New("order could not be understood")

	// ErrForbiddenAction means the action targets something the player
	// does not own or lacks the standing or resources to affect.
	ErrForbiddenAction = errors.New("action is not permitted")

	// ErrStaleRevision means an optimistic write lost to a concurrent
	// mutation of the same country.
	ErrStaleRevision = errors.New("stale country revision")

	// ErrConflict means the stale-revision retry bound was exhausted.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrGenerationUnavailable means the text-generation collaborator
	// failed; callers degrade to templated text instead of failing.
	ErrGenerationUnavailable = errors.New("text generation unavailable")

	// ErrTransientFailure is surfaced after retry/timeout exhaustion.
	ErrTransientFailure = errors.New("transient failure, try again")
)
