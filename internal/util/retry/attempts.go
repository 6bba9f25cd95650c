package retry

import "fmt"

// Outcome is the result of a bounded retry run.
type Outcome struct {
	// Attempts is the number of times the operation was invoked.
	Attempts int
	// Err is the error of the last attempt, nil on success.
	Err error
}

// Succeeded reports whether the last attempt succeeded.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// ExhaustedError is returned when every attempt of a bounded run failed.
// It keeps the error of the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Attempts invokes operation up to max times, stopping at the first success.
// There is no delay between attempts. onFailure, when non-nil, is called
// after every failed attempt with the 1-based attempt number.
//
// The returned Outcome always reports the number of invocations; Err is an
// *ExhaustedError wrapping the last failure when no attempt succeeded.
func Attempts(max int, operation func(attempt int) error, onFailure func(attempt int, err error)) Outcome {
	if max < 1 {
		max = 1
	}
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		err := operation(attempt)
		if err == nil {
			return Outcome{Attempts: attempt}
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
	}
	return Outcome{Attempts: max, Err: &ExhaustedError{Attempts: max, Err: lastErr}}
}

// While runs operation once and then re-runs it while retryable(err) holds,
// up to maxRetries extra times. Unlike Attempts, a non-retryable error stops
// the loop immediately.
func While(maxRetries int, retryable func(error) bool, operation func() error) error {
	err := operation()
	for retries := 0; err != nil && retryable(err) && retries < maxRetries; retries++ {
		err = operation()
	}
	return err
}
