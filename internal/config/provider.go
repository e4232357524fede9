package config

import (
	"fmt"
	"strings"
)

// ProviderConfig is the validated, immutable configuration for one provider's
// credentials. Build it once at the boundary with NewProviderConfig.
type ProviderConfig struct {
	provider string
	apiKey   string
	baseURL  string
}

type providerInput struct {
	Provider string `validate:"required,oneof=openai"`
	APIKey   string `validate:"required"`
	BaseURL  string `validate:"omitempty,url"`
}

// NewProviderConfig validates stored credentials. It returns
// ErrMissingCredentials when no key is set and ErrProviderInactive when the
// credentials exist but are switched off.
func NewProviderConfig(provider, apiKey, baseURL string, active bool) (ProviderConfig, error) {
	in := providerInput{
		Provider: strings.ToLower(strings.TrimSpace(provider)),
		APIKey:   strings.TrimSpace(apiKey),
		BaseURL:  strings.TrimSpace(baseURL),
	}
	if in.APIKey == "" {
		return ProviderConfig{}, fmt.Errorf("%s: %w", provider, ErrMissingCredentials)
	}
	if !active {
		return ProviderConfig{}, fmt.Errorf("%s: %w", provider, ErrProviderInactive)
	}
	if err := validate.Struct(in); err != nil {
		return ProviderConfig{}, fmt.Errorf("invalid %s provider config: %w", provider, describeValidation(err))
	}
	return ProviderConfig{provider: in.Provider, apiKey: in.APIKey, baseURL: in.BaseURL}, nil
}

func (p ProviderConfig) Provider() string { return p.provider }
func (p ProviderConfig) APIKey() string   { return p.apiKey }
func (p ProviderConfig) BaseURL() string  { return p.baseURL }

// IsZero reports whether p was never successfully constructed.
func (p ProviderConfig) IsZero() bool { return p.apiKey == "" }

// String redacts the key.
func (p ProviderConfig) String() string {
	return fmt.Sprintf("%s(base_url=%q, key=***)", p.provider, p.baseURL)
}
