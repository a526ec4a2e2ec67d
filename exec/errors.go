package exec

import "fmt"

// ExecutionError wraps a session failure with the statement that produced
// it. The cause is preserved for errors.Is/As.
type ExecutionError struct {
	Statement string
	Err       error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.Statement, e.Err)
}

// Unwrap returns the underlying session error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// ConditionNotMetError reports a conditional statement whose optimistic
// condition did not hold. Row carries the contending live row when the store
// returned one.
type ConditionNotMetError struct {
	Row map[string]any
}

// Error implements the error interface.
func (e *ConditionNotMetError) Error() string {
	if len(e.Row) == 0 {
		return "condition not met"
	}
	return fmt.Sprintf("condition not met; live row %v", e.Row)
}
