package wnotify

import "fmt"

// ConfigError reports a credential that must be configured before use.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: not configured", e.Field)
}

var (
	// ErrMissingPrivateKey is returned when watching starts without a private key.
	ErrMissingPrivateKey = &ConfigError{Field: "private key"}
	// ErrMissingPublicKey is returned when tracking without a public key.
	ErrMissingPublicKey = &ConfigError{Field: "public key"}
)
