// Package harnesserr defines the sentinel error categories a run can fail
// with, so callers can classify failures with errors.Is instead of parsing
// error strings.
package harnesserr

import "errors"

var (
	// ErrConfiguration covers malformed or missing run configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnection covers failure to reach a source or target database.
	ErrConnection = errors.New("connection error")
	// ErrIntegrity covers a run bundle or checksum that fails verification.
	ErrIntegrity = errors.New("integrity error")
	// ErrTransient covers a retryable database error (timeout, deadlock).
	ErrTransient = errors.New("transient database error")
	// ErrUnsupportedObject covers an object type/shape the harness refuses to process.
	ErrUnsupportedObject = errors.New("unsupported object")
	// ErrUnverified covers a translated object whose SQL was never compile-checked.
	ErrUnverified = errors.New("unverified translation")
	// ErrTypeMapping covers a source type with no IR mapping.
	ErrTypeMapping = errors.New("type mapping failure")
)
