package core

// Phase is the execution phase of a single action request.
//
// An action moves Validating -> Attempting (once per tier) -> Succeeded or
// Failed. Succeeded and Failed are terminal.
type Phase int

const (
	PhaseValidating Phase = iota // Checking the request before any driver call
	PhaseAttempting              // A tier is running
	PhaseSucceeded               // Some tier succeeded
	PhaseFailed                  // Validation failed or every tier failed
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseAttempting:
		return "attempting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the phase is a final state
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// IsSuccess returns true if the phase indicates success
func (p Phase) IsSuccess() bool {
	return p == PhaseSucceeded
}

// ErrorCategory classifies the type of error for logging and failure accounting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryValidation                       // Malformed or out-of-range action input
	ErrCategoryDriver                           // A single driver call failed
	ErrCategoryStaleTarget                      // Element handle invalidated mid-action
	ErrCategoryExhausted                        // Every fallback tier failed
	ErrCategoryPersistence                      // Store or screenshot write failed
	ErrCategoryHashing                          // Screenshot could not be decoded
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryValidation:
		return "validation"
	case ErrCategoryDriver:
		return "driver"
	case ErrCategoryStaleTarget:
		return "stale_target"
	case ErrCategoryExhausted:
		return "exhausted"
	case ErrCategoryPersistence:
		return "persistence"
	case ErrCategoryHashing:
		return "hashing"
	default:
		return "unknown"
	}
}
