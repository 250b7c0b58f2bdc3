// pkg/extent/errors.go

package extent

import (
	cerr "github.com/cockroachdb/errors"
)

var (
	// ErrExtentUnavailable marks open or I/O failures on the target
	// extent. The engine retries an unavailable pass exactly once; the
	// underlying cause stays in the wrap chain verbatim for the audit
	// trail.
	ErrExtentUnavailable = cerr.New("extent unavailable")

	// ErrShortWrite marks a positioned write where the storage primitive
	// accepted fewer bytes than requested. Never retried: the pattern
	// state of the extent is undefined past the reported offset.
	ErrShortWrite = cerr.New("short write to extent")

	// ErrPathEscapesSandbox marks a target reference resolving outside
	// the configured sandbox root. Raised before any handle is opened or
	// byte written, and never retried.
	ErrPathEscapesSandbox = cerr.New("target path escapes sandbox")
)
