// Package config provides centralized configuration management for the
// almanac engine. It handles loading configuration from multiple
// sources, validation, and a type-safe API for the rest of the
// application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of
// precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ALMANAC_* for
// namespacing:
//
//	ALMANAC_SERVER_PORT=8080
//	ALMANAC_DATA_CSV_DIR=data
//	ALMANAC_DATA_CACHE_BACKENDS=memory,parquet
//	ALMANAC_LOGGING_LEVEL=info
//
// The config file location defaults to config.yaml and can be overridden
// with ALMANAC_CONFIG_FILE.
package config
