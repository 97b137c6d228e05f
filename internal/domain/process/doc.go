/*
Package process spawns shell commands and tracks them until they exit.

The Registry maps PID to Record (process handle, working directory, owning
connection, command). It is shared by every WebSocket session and by the
workspace manager, which uses it to kill processes running inside a
directory before deleting it.

Lifecycle:

	spawned -> running -> exited
	                   -> terminated
	spawned -> spawn_failed

A record is removed in every terminal state. Termination sends SIGTERM to
the process group on Unix and runs taskkill /T /F on Windows; failures are
logged and never returned.
*/
package process
