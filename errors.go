package cssync

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers match with errors.Is;
// the service converts them into PatchResult values at the boundary.
var (
	// ErrStaleIndex means a patch targeted a file no longer present in the
	// index (removed or never loaded). No write is attempted; the caller
	// must re-run discovery.
	ErrStaleIndex = errors.New("stale index: file not cached")

	// ErrInvalidEvent means a change event was missing its selector/class
	// information or had no changes. Rejected before any file I/O.
	ErrInvalidEvent = errors.New("invalid change event")

	// ErrNotConfigured means ApplyChange was called before Configure.
	ErrNotConfigured = errors.New("no root path configured")
)

// ConfigurationError reports an unusable root path. Fatal to Configure,
// surfaced directly with no retry.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Path, e.Reason)
}

// WriteFailure wraps a disk error during a rule write. The in-memory cache
// is left at its pre-write state so a retry is safe.
type WriteFailure struct {
	Path string
	Err  error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }
