// Package config handles configuration loading for coven-settings.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Every key is optional; missing keys keep the values from
// Default.
//
// # Configuration File
//
// Locate checks, in order:
//
//  1. Path from COVEN_SETTINGS_CONFIG environment variable
//  2. ./coven-settings.yaml (current directory)
//  3. $XDG_CONFIG_HOME/coven-settings/config.yaml
//  4. $XDG_CONFIG_HOME/coven-settings/config.toml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	data_dir: "${HOME}/.coven"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
//	data_dir: ~/.local/share/coven-settings
//
//	files:
//	  servers: servers.json   # relative to data_dir
//	  tokens: tokens.json
//
//	database:
//	  path: settings.db       # or ":memory:"
//	  driver: sqlite          # sqlite (pure Go) or sqlite3 (cgo)
//	  busy_timeout: "5s"
//
//	logging:
//	  level: info             # debug, info, warn, error
//	  format: text            # text or json
//
// The same keys apply in TOML:
//
//	data_dir = "/var/lib/coven"
//
//	[database]
//	driver = "sqlite3"
package config
