package provider

import "fmt"

// ConfigError means a provider credential or endpoint is missing. It is
// returned before any network call is attempted.
type ConfigError struct {
	Provider string
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider not configured: %s missing", e.Provider, e.Missing)
}

// TransportError marks a failure at the HTTP layer (connection error or a
// non-2xx status), as opposed to a response whose content is unusable.
// Orchestrators treat these as transient.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
