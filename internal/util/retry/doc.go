// Package retry provides retry helpers for transient failures.
//
// [WithExponentialBackoff] retries cloud API calls that may fail because a
// resource is temporarily locked. [Attempts] is a bounded combinator without
// backoff, used where the retry budget itself is part of the contract (the
// installer destroy step is attempted at most twice).
package retry
