package schemas

import "fmt"

// -- Harness Error Taxonomy --
//
// ConfigurationError and SessionStartError abort a measurement before it produces an
// outcome. CleanupError is only surfaced when nothing more specific went wrong.
// Navigation failures and artifact timeouts are not errors, see Outcome.

// ConfigurationError reports that the execution environment could not be prepared,
// for example because the resolver file could not be written.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error during %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// SessionStartError reports that the browser could not be launched or instrumented.
type SessionStartError struct {
	Stage string
	Err   error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("session start failed at %s: %v", e.Stage, e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }

// CleanupError reports that the browser session could not be torn down cleanly.
type CleanupError struct {
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("session cleanup failed: %v", e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
