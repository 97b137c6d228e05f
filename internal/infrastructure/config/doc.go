// Package config provides 12-factor configuration management for the server.
//
// Configuration is loaded from environment variables with sensible defaults.
// A .env file is read by the entry point before Load; CLI flags override
// individual values after it.
//
// Configuration Sections:
//   - Server: listen address, static directory, shutdown timeout, CORS
//     origins, request body limit
//   - Workspace: root directory and storage backend (local or blob)
//   - Exec: shell, kill grace period, scaffold triggers
//   - WebSocket: ping interval, write timeout, frame size limit
//   - Generator: code-generation provider, model and credentials
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	root, _ := cfg.WorkspaceRoot()
package config
