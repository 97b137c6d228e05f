// Package logging builds the zap logger shared by the sandbox server.
//
// LOG_DEV=true switches from JSON lines to a colored console encoder and
// drops the default level to debug. Each component takes a named child, so
// a line from the process registry reads "registry" and one from a socket
// session reads "ws":
//
//	logger := logging.MustNew(logging.Config{Level: "info"})
//	reg := process.NewRegistry(process.WithLogger(logger.Named("registry")))
package logging
