package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidSample marks samples rejected at the ingestion boundary. Rejected
// samples mutate no state, write no log entry and must not be retried
// verbatim by the producer.
var ErrInvalidSample = errors.New("invalid sample")

// InvalidSampleError carries the rejection reason for a dropped sample.
type InvalidSampleError struct {
	VehicleID string
	Reason    string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample for vehicle %q: %s", e.VehicleID, e.Reason)
}

func (e *InvalidSampleError) Unwrap() error { return ErrInvalidSample }

// DependencyError wraps a failure of an external store (zones, vehicles,
// GPS log). The sample fails atomically and the caller may retry it whole.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
