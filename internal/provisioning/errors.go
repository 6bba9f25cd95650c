package provisioning

import (
	"fmt"
	"strings"
)

// NoCapacityError is returned when every candidate region is at or above
// the capacity threshold.
type NoCapacityError struct {
	Candidates []string
	Threshold  int
}

func (e *NoCapacityError) Error() string {
	return fmt.Sprintf("no free region amongst [%s] (threshold %d)", strings.Join(e.Candidates, ", "), e.Threshold)
}

// NoSuitableNetworkError is returned when no candidate network has free
// addresses.
type NoSuitableNetworkError struct {
	Candidates []string
}

func (e *NoSuitableNetworkError) Error() string {
	if len(e.Candidates) == 0 {
		return "no suitable network found: no candidate networks"
	}
	return fmt.Sprintf("no suitable network found amongst [%s]", strings.Join(e.Candidates, ", "))
}

// ImageResolutionError is returned when the boot image could not be
// resolved within the retry budget.
type ImageResolutionError struct {
	Version  string
	Attempts int
	Err      error
}

func (e *ImageResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve boot image %s after %d attempts: %v", e.Version, e.Attempts, e.Err)
}

func (e *ImageResolutionError) Unwrap() error { return e.Err }
