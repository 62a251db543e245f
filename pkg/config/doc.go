// Package config provides configuration management for Beacon.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("beacon.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("beacon.yaml")
//
// LoadConfigWithEnvOverrides("") starts from Default() instead of a file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BEACON_SECTION_FIELD.
// For example:
//
//   - BEACON_RULES_PATH overrides rules.path
//   - BEACON_SUPPRESSION_FAIL_MODE overrides suppression.fail_mode
//   - BEACON_DISPATCH_WEBHOOK_URL overrides dispatch.webhook.url
//   - BEACON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every problem before returning:
//
//	configuration validation failed with 2 errors:
//	  - suppression.fail_mode: invalid fail mode "sometimes" (must be "fail-closed" or "fail-open")
//	  - dispatch.webhook.url: webhook URL is required when notifier is 'webhook'
//
// # Example Configuration
//
//	rules:
//	  path: "./rules"
//	  watch: true
//
//	suppression:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/suppression.db"
//	  fail_mode: "fail-closed"
//
//	audit:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/audit.db"
//
//	dispatch:
//	  min_severity: "medium"
//	  notifier: "webhook"
//	  webhook:
//	    url: "https://alerts.example.org/beacon"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
