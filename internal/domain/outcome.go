package domain

// Outcome is the terminal state of a single URL download
type Outcome int

const (
	// OutcomePending means the URL has not produced a result yet
	OutcomePending Outcome = iota
	// OutcomeFetched means the body was written to the output target
	OutcomeFetched
	// OutcomeNotModified means the server answered 304 for the conditional request
	OutcomeNotModified
	// OutcomeSkippedNotImage means the response was not an image
	OutcomeSkippedNotImage
	// OutcomeSkippedLockConflict means another writer held the output target lock
	OutcomeSkippedLockConflict
	// OutcomeFailed covers network errors, unexpected statuses and write errors
	OutcomeFailed
)

// Outcomes lists every terminal outcome in a stable order
var Outcomes = []Outcome{
	OutcomeFetched,
	OutcomeNotModified,
	OutcomeSkippedNotImage,
	OutcomeSkippedLockConflict,
	OutcomeFailed,
}

// String returns the label used in logs, metrics and the history journal
func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeSkippedNotImage:
		return "skipped_not_image"
	case OutcomeSkippedLockConflict:
		return "skipped_lock_conflict"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}
