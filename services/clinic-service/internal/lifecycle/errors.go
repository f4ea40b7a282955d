package lifecycle

import "fmt"

// ValidationError reports missing or malformed input, detected before any
// store I/O happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an operation against an appointment id that is no
// longer present. Repeated deletes surface it as a benign failure.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("appointment %s not found", e.ID) }

// TransitionError reports a failed primary state mutation: either the store
// write failed (Err is set) or the transition itself is not permitted
// (Reason is set). The operation is considered not applied.
type TransitionError struct {
	Op     string
	ID     string
	Reason string
	Err    error
}

func (e *TransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// SideEffectError reports a failure in the best-effort saga that follows a
// successful primary transition (patient registry write, notification
// dispatch). It is logged and reported, never returned to the caller.
type SideEffectError struct {
	Stage string
	ID    string
	Err   error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s side effect for appointment %s: %v", e.Stage, e.ID, e.Err)
}

func (e *SideEffectError) Unwrap() error { return e.Err }
