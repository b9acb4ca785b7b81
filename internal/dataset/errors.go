package dataset

import "fmt"

// LoadError indicates the CSV source could not be read or parsed.
// It is fatal: the process must not start accepting conversations.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ComputeError indicates an aggregate was invoked with a bad parameter
// (unknown column, unknown category, unsupported operator). Recoverable:
// reported back to the model as tool-result content.
type ComputeError struct {
	Msg string
}

func (e *ComputeError) Error() string { return e.Msg }

func computeErrf(format string, args ...interface{}) error {
	return &ComputeError{Msg: fmt.Sprintf(format, args...)}
}
