package provider

import (
	"fmt"
	"strings"
)

// NewProviderFromConfig creates a provider instance based on configuration
func NewProviderFromConfig(backend string, cfg AlchemyConfig) (Provider, error) {
	switch strings.ToLower(backend) {
	case "mock", "":
		return NewMockProvider(), nil
	case "alchemy":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("alchemy provider requires an API key")
		}
		return NewAlchemyClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider backend: %s", backend)
	}
}
