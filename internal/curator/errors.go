package curator

import (
	"errors"
	"fmt"
)

// ConfigurationError means the user's provider setup is missing or switched
// off. It is raised before any provider spend.
type ConfigurationError struct {
	Provider string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s provider is not configured", e.Provider)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "\nFix: add an active API key for the provider in your AI settings"
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NotFoundError means a requested resource does not exist for the user.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ProviderError wraps a failed embedding or generation call.
type ProviderError struct {
	Op    string
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed (model %s): %v", e.Op, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError means the model output could not be used. Truncated output
// hit the token limit; anything else is malformed.
type ParseError struct {
	Truncated bool
	MaxTokens int
	Err       error
}

func (e *ParseError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("model output was cut off at %d tokens\nFix: raise the max tokens for this task in your AI settings", e.MaxTokens)
	}
	return fmt.Sprintf("could not parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
