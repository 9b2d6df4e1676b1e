package inventory

import (
	"errors"
	"fmt"
)

// ErrAuth signals that login failed or the response yielded no usable
// session material.
var ErrAuth = errors.New("inventory authentication failed")

// UpstreamError is a non-2xx or malformed response from the external
// inventory system.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inventory %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("inventory %s: status %d", e.Op, e.Status)
}

// ServerError reports whether the upstream failed on its side, as opposed
// to rejecting the request. Filtered identity queries fall back to an
// unfiltered listing on server errors only.
func (e *UpstreamError) ServerError() bool {
	return e.Status >= 500
}

func upstreamErr(op string, status int, message string) *UpstreamError {
	return &UpstreamError{Op: op, Status: status, Message: message}
}

// MappingError is an upstream payload whose shape the mapper cannot use.
type MappingError struct {
	DeviceID string
	Reason   string
}

func (e *MappingError) Error() string {
	if e.DeviceID != "" {
		return fmt.Sprintf("inventory mapping: device %s: %s", e.DeviceID, e.Reason)
	}
	return fmt.Sprintf("inventory mapping: %s", e.Reason)
}
