// Package config handles loading and validating the Moku control core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with MOKU_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// The device cache and the SQLite database live under a fixed per-user
// directory (~/.moku-mcp) unless overridden.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Cache.Path)
package config
