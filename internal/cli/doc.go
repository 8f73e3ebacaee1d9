// Package cli turns the command line of the bibix binary into an
// app.Config: the names to build, the action arguments after "--", and the
// logging and worker options. Usage errors carry the exit code in ExitError.
package cli
