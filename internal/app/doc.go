// Package app contains the core application logic. It wires the plugin
// registry, the project graphs, the repository and the scheduler of one
// build, decoupled from any specific entrypoint like a CLI.
package app
