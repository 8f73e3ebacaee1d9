// Package registry provides the central "glue" for the rule plugin system.
//
// The Registry stores the mappings between the implementation names used in
// build scripts (e.g. `native:Copy` inside the `file` plugin) and the
// compiled Go functions that implement them, together with the plugin
// scripts that declare those rules.
//
// During application startup every module registers itself, the plugin
// scripts are loaded, and the registry is validated to ensure that the Go
// code and the script declarations are in sync, preventing a wide class of
// runtime errors.
package registry
