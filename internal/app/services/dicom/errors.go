package dicom

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload marks a WADO-RS response that cannot be split into instances.
	ErrMalformedPayload = errors.New("malformed DICOM multipart payload")
	// ErrRetriesExhausted is returned when the server keeps answering 503.
	ErrRetriesExhausted = errors.New("imaging server still unavailable after retries")
	// ErrDecodeInstance wraps every failure to decode a single part.
	ErrDecodeInstance = errors.New("cannot decode DICOM instance")
	ErrBlobNotFound   = errors.New("blob not registered")
)

// UpstreamStatusError is a final non-2xx, non-503 WADO-RS answer.
type UpstreamStatusError struct {
	URI        string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("imaging server answered %d for %s", e.StatusCode, e.URI)
}
