// Package config handles loading and validating the KAKU bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields (the hub credential pair)
//   - Default value handling
//
// Security Considerations:
//   - The hub password and JWT secret should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if errors.Is(err, config.ErrConfiguration) {
//	    // fatal: refuse to start
//	}
package config
