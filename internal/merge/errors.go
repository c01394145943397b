package merge

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds for one bundle's preprocessing. Batch handling
// only distinguishes failed from succeeded; the kinds exist for logs and
// tests.
var (
	// ErrParseFailure: the archive could not be parsed.
	ErrParseFailure = errors.New("bundle parse failure")
	// ErrNoCalendarMatch: no service in the bundle satisfies the target
	// window under the selected policy.
	ErrNoCalendarMatch = errors.New("no service calendar matches the target window")
	// ErrMissingStopLocation: a stop (and its parent) has no coordinate
	// and the missing-stop-location policy is set to fail.
	ErrMissingStopLocation = errors.New("stop has no resolvable location")
)

// BundleError annotates a failure with the bundle it belongs to.
type BundleError struct {
	Bundle string
	Err    error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundle %s: %v", e.Bundle, e.Err)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}
