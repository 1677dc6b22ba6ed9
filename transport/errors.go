package transport

// PermanentError marks a failure that happened before the request reached
// the underlying transport. Resilient returns Err as is, without retrying
// it or reporting it to the circuit breaker.
type PermanentError struct {
	Err error
}

// Permanent wraps err in a *PermanentError. It returns nil for a nil err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
