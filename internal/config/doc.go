// Package config handles configuration loading for wallboard-relay.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${WALLBOARD_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "8h"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # REST API and websocket endpoint
//
// Database:
//
//	database:
//	  path: "/var/lib/wallboard/relay.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${WALLBOARD_JWT_SECRET}"
//	  token_ttl: "8h"
//
// Websocket transport:
//
//	websocket:
//	  allowed_origins:
//	    - "https://wallboard.example.com"
//	  max_message_bytes: 4096
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/wallboard/relay.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
