// Package repo is the on-disk repository of a build: the cache records of
// rule invocations, the output directories of targets and the progress logs.
//
// Everything lives under the build directory of the main project:
//
//	bbxbuild/
//	  config.hcl       run configuration
//	  repo.db          sqlite database with the cache records and logs
//	  objects/<id>/    output directory of the invocation with target id <id>
//	  outputs/<name>   symlink to the object directory of a named target
//	  shared/<name>/   directories shared between invocations
package repo
