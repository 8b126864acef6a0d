package core

// Status represents the execution status of a scenario
type Status int

const (
	StatusPending Status = iota // Not yet started
	StatusRunning               // Currently executing
	StatusPassed                // Completed successfully
	StatusFailed                // Assertion failed (expected behavior didn't occur)
	StatusErrored               // Unexpected error (session, config, crash)
	StatusSkipped               // Skipped by the scenario itself or by filtering
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status does not fail the run (passed or skipped)
func (s Status) IsSuccess() bool {
	return s == StatusPassed || s == StatusSkipped
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone         ErrorCategory = iota // No error
	ErrCategoryNotFound                          // Selector list matched nothing within timeout
	ErrCategoryNotDismissed                      // Banner heuristic exhausted all strategies
	ErrCategoryScan                              // Image property read failed during a scan
	ErrCategoryAssertion                         // Explicit expectation not met
	ErrCategorySession                           // Remote session unreachable or misconfigured
	ErrCategoryConfig                            // Invalid configuration, missing required field
	ErrCategoryValidation                        // Input rejected locally before any UI call
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategoryNotDismissed:
		return "not_dismissed"
	case ErrCategoryScan:
		return "scan"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategorySession:
		return "session"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// StatusFor maps an error to the scenario status it produces.
// Only assertion failures fail a scenario; everything else errors it.
func StatusFor(err error) Status {
	if err == nil {
		return StatusPassed
	}
	switch CategoryOf(err) {
	case ErrCategoryAssertion:
		return StatusFailed
	default:
		return StatusErrored
	}
}
