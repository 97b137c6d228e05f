// Command codepilot-server runs the backend of the CodePilot browser
// coding sandbox.
//
// The server provides:
//   - REST API for the workspace files (/list, /read, /write, DELETE)
//   - WebSocket command streaming (/ws, /stream)
//   - Code generation proxy (/generate)
//   - Health page, JSON health and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor), optionally from a .env file
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./codepilot-server --port 8000 --workspace /srv/sandbox
//
//	# Development mode (colored logs, debug level)
//	./codepilot-server --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown; running commands are terminated
package main
