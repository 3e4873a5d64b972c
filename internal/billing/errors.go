package billing

import "fmt"

// ConfigError reports an invalid billing configuration: a bad late-fee
// policy, a malformed reminder ladder, or an unknown currency code.
// It is returned synchronously to the caller and never corrected silently.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid billing configuration: %s %s", e.Field, e.Reason)
}
