package model

import (
	"errors"
	"fmt"
)

// Error categories. Adapters and services wrap these so callers can branch
// with errors.Is and the CLI can map them to exit codes.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrAuthentication    = errors.New("authentication failed")
	ErrConnectivity      = errors.New("service or target unreachable")
	ErrScanAborted       = errors.New("scan run aborted")
	ErrScanFailed        = errors.New("scan failed")
	ErrDownloadTimeout   = errors.New("download timed out")
	ErrUnexpectedState   = errors.New("scan ended in an unexpected state")
	ErrThresholdExceeded = errors.New("finding threshold exceeded")
	ErrNonCompliant      = errors.New("non-compliant findings present")
)

// Process exit codes for CI integration.
const (
	ExitOK           = 0
	ExitMisconfigure = 2
	ExitScanError    = 10
	ExitNonCompliant = 12
)

// ScanError attaches the scan identity to an error so terminal failures can
// be correlated with the service's own records.
type ScanError struct {
	ScanID   string
	ScanName string
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%v (Scan Id: %s, Scan Name: %s)", e.Err, e.ScanID, e.ScanName)
}

func (e *ScanError) Unwrap() error { return e.Err }

// NewScanError wraps err with the identity of h.
func NewScanError(h ScanHandle, err error) *ScanError {
	return &ScanError{ScanID: h.ID, ScanName: h.Name, Err: err}
}

// ExitCode maps an error returned by a scan command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNonCompliant):
		return ExitNonCompliant
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrConnectivity):
		return ExitMisconfigure
	default:
		return ExitScanError
	}
}

// AbortScan wraps cause as ErrScanAborted for h. The cause is kept in the
// message only, so an abort after submission never maps back to a
// pre-submission exit code.
func AbortScan(h ScanHandle, cause error) *ScanError {
	return NewScanError(h, fmt.Errorf("%w: %v", ErrScanAborted, cause))
}
