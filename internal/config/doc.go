// Package config provides centralized configuration management for the tabprep
// service. It handles loading configuration from multiple sources, validation,
// and provides a type-safe API for accessing configuration values throughout
// the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TABPREP_* for namespacing:
//
//	TABPREP_SERVER_PORT=8080
//	TABPREP_LOGGING_LEVEL=info
//	TABPREP_PATHS_ARTIFACTS_DIR=data/artifacts
//	TABPREP_PIPELINE_SENTINEL=other
//	TABPREP_PIPELINE_INDICATOR_SUFFIX=_na
//
// # Configuration Structure
//
// The main configuration struct groups related settings:
//
//	type Config struct {
//	    Server   ServerConfig
//	    Security SecurityConfig
//	    Logging  LoggingConfig
//	    Paths    PathsConfig
//	    Pipeline PipelineConfig
//	}
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Port numbers are within acceptable ranges
//	- Timeouts are positive
//	- Log output targets are recognized
//	- Pipeline sentinel and indicator suffix are non-empty
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// For testing, use config.Default() to create a configuration with sensible
// defaults that don't require environment variables or config files.
package config
