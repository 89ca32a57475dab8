package errors

import (
	"errors"
	"fmt"
)

const (
	CodeUnknownArtifact   = "UNKNOWN_ARTIFACT"
	CodeTransportFailure  = "TRANSPORT_FAILURE"
	CodeIntegrityMismatch = "INTEGRITY_MISMATCH"
	CodeDeviceInitFailure = "DEVICE_INIT_FAILURE"
	CodeCacheCorruption   = "CACHE_CORRUPTION"
)

// Types ////////////////////////////////////////

type CodedError interface {
	Code() string
}

type codedError struct {
	code  string
	msg   string
	cause error
}

func (e *codedError) Error() string {
	return e.msg
}

func (e *codedError) Code() string {
	return e.code
}

func (e *codedError) Unwrap() error {
	return e.cause
}

// Error Creators ///////////////////////////////

// The named artifact does not exist in the registry
func UnknownArtifact(name string) error {
	return &codedError{
		code: CodeUnknownArtifact,
		msg:  fmt.Sprintf("unknown model: %s", name),
	}
}

// Network or IO failure while transferring an artifact
func TransportFailure(name string, cause error) error {
	return &codedError{
		code:  CodeTransportFailure,
		msg:   fmt.Sprintf("downloading %s: %s", name, cause),
		cause: cause,
	}
}

// The on-disk content hash differs from the recorded hash
func IntegrityMismatch(name string, expected string, actual string) error {
	return &codedError{
		code: CodeIntegrityMismatch,
		msg:  fmt.Sprintf("hash mismatch for %s: expected %s, got %s", name, expected, actual),
	}
}

// Every device tier failed to initialize
func DeviceInitFailure(path string) error {
	return &codedError{
		code: CodeDeviceInitFailure,
		msg:  fmt.Sprintf("failed to load %s on any device tier", path),
	}
}

// A cached handle could not be materialized
func CacheCorruption(key string) error {
	return &codedError{
		code: CodeCacheCorruption,
		msg:  fmt.Sprintf("cache entry %s could not be materialized", key),
	}
}

// Helpers //////////////////////////////////////

func IsUnknownArtifact(err error) bool {
	return Code(err) == CodeUnknownArtifact
}

func IsTransportFailure(err error) bool {
	return Code(err) == CodeTransportFailure
}

func IsIntegrityMismatch(err error) bool {
	return Code(err) == CodeIntegrityMismatch
}

func IsDeviceInitFailure(err error) bool {
	return Code(err) == CodeDeviceInitFailure
}

func IsCacheCorruption(err error) bool {
	return Code(err) == CodeCacheCorruption
}

// Return the error code, or the empty string
func Code(err error) string {
	var cerr CodedError
	if errors.As(err, &cerr) {
		return cerr.Code()
	}

	return ""
}
