package table

import "fmt"

// StatementError reports a statement the driver rejected. It is only ever delivered
// through a completion callback.
type StatementError struct {
	// Statement is the rendered statement text, as logged.
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed: %v", e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }
