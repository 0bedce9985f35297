package formchunk

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEnvelope is returned when the request is not a multipart form with a usable boundary.
	ErrMalformedEnvelope = errors.New("malformed multipart envelope")
	// ErrInvalidBoundary is returned when the boundary is empty.
	ErrInvalidBoundary = fmt.Errorf("%w: invalid boundary", ErrMalformedEnvelope)
	// ErrTruncated is returned when the body ends before the closing boundary.
	ErrTruncated = errors.New("truncated multipart body")
	// ErrMalformedPart is returned when a part header can not be read.
	ErrMalformedPart = errors.New("malformed part")
	// ErrThresholdExceeded matches every ThresholdError.
	ErrThresholdExceeded = errors.New("threshold exceeded")
	// ErrUnsupportedCharset is returned for a charset name that is not known.
	ErrUnsupportedCharset = errors.New("unsupported charset")
	// ErrNotInMemory is returned when the content of a part stored on disk is requested as bytes.
	ErrNotInMemory = errors.New("part is not in memory")
	// ErrTooManyParts is returned when the parts are more than MaxParts.
	ErrTooManyParts = errors.New("too many parts")
	// ErrTooManyHeaders is returned when the headers are more than MaxHeaders.
	ErrTooManyHeaders = errors.New("too many headers")
	// ErrTooLargeForm is returned when the form is too large for the parser to handle within the memory limit.
	ErrTooLargeForm = errors.New("too large form")
)

// ThresholdError is returned when a part or the whole body is larger than
// its configured limit. Part is nil for the whole body.
type ThresholdError struct {
	Part  *Part
	Limit DataSize
	Size  int64
}

func (e *ThresholdError) Error() string {
	if e.Part == nil {
		return fmt.Sprintf("request size %d exceeds threshold %d", e.Size, e.Limit)
	}

	return fmt.Sprintf("part %q size %d exceeds threshold %d", e.Part.Name(), e.Size, e.Limit)
}

func (e *ThresholdError) Is(target error) bool {
	return target == ErrThresholdExceeded
}

// PartError is returned when the storage of a part fails.
type PartError struct {
	Part *Part
	Op   string
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("failed to %s part %q: %s", e.Op, e.Part.Name(), e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}

type DuplicateHookNameError struct {
	Name string
}

func (e DuplicateHookNameError) Error() string {
	return fmt.Sprintf("duplicate hook name: %s", e.Name)
}
