// Package config loads the run configuration of a build from the HCL file
// kept in the build directory of the main project.
//
// Expressions in the file are evaluated with a small function set: env(name)
// reads an environment variable, and upper/lower come from the cty standard
// library.
package config
