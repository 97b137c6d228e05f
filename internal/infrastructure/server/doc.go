// Package server wires configuration, storage, process management, the
// command socket and the REST facade onto one gin engine, and owns
// graceful shutdown.
//
// Middleware order: recovery, request ID, access log, metrics, body size
// limit, CORS, rate limiting. WebSocket sessions are served on /ws and /stream.
//
// On shutdown the HTTP server drains in-flight requests first; every
// process still in the registry is then terminated so no command outlives
// the server.
package server
