// Package interfaces defines the collaborator contracts for the Defender console client
package interfaces

// Logger provides structured logging capabilities
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}

// Storage is the durable client storage the session persists into: the
// counterpart of the browser's localStorage. Implementations must tolerate
// concurrent processes sharing the same backing store; no locking is
// provided and each process's in-memory view is independently
// authoritative until the next read.
type Storage interface {
	// Get returns the stored value for key, or ok=false if absent.
	Get(key string) (value string, ok bool)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Notifier is the global notification channel every pipeline-level failure
// is reported through, so all screens surface failures uniformly.
type Notifier interface {
	NotifyError(message string)
}

// Navigator abstracts the "navigate the browser away" side effect the
// pipeline performs on an authorization failure. In the SPA this was a
// location assignment; consumers embedding the client decide what a forced
// navigation means for them.
type Navigator interface {
	NavigateTo(path string)
}
