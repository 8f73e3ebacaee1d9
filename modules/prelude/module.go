// Package prelude provides the names every build script sees without an
// import: file globbing, git-hosted projects and the current build
// environment.
package prelude

import (
	"github.com/specialistvlad/bibixgo/internal/registry"
)

// PackageName is the package the prelude script declares.
const PackageName = "com.giyeok.bibix.prelude"

// Script is the source of the prelude.
const Script = `package com.giyeok.bibix.prelude

enum OS { unknown, linux, osx, windows }
enum Arch { unknown, x86, x86_64, aarch_64 }

class Env(os: OS, arch: Arch)

class BibixProject(projectRoot: directory, scriptName?: string)

def glob(pattern: {string, set<string>}): set<file> = native:Glob

def git(
  url: string,
  ref?: string,
  branch?: string,
  tag?: string,
  path: string = ".",
  scriptName?: string,
): BibixProject = native:Git

def currentEnv(): Env = native:CurrentEnv

env = currentEnv()
`

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the prelude script and its rules.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPrelude(&registry.Plugin{Name: "prelude", Script: Script})
	r.RegisterRule(registry.Capability{Module: PackageName, Class: "Glob"}, Glob)
	r.RegisterRule(registry.Capability{Module: PackageName, Class: "Git"}, Git)
	r.RegisterRule(registry.Capability{Module: PackageName, Class: "CurrentEnv"}, CurrentEnv)
}
