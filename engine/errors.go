package engine

import "errors"

var (
	// ErrDuplicateScoredResult marks an attempt to score a participant
	// twice for the same event and start time. Always a scoring-integrity
	// defect; never swallowed.
	ErrDuplicateScoredResult = errors.New("engine: duplicate scored result for participant/event/start")

	// ErrAmbiguousMatch marks a binder run that found more than one
	// plausible timing result. Deferred to manual review, not a batch
	// failure.
	ErrAmbiguousMatch = errors.New("engine: ambiguous result match")

	// ErrInactiveYear rejects mutation of a closed competition year
	// through the normal scoring path.
	ErrInactiveYear = errors.New("engine: competition year is closed for scoring changes")
)
