package project

import (
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/bibixgo/internal/graph"
)

// ID identifies a project within one run.
type ID int

const (
	MainID    ID = 1
	PreludeID ID = 2
	// firstPluginID is the id of the first preloaded plugin.
	firstPluginID ID = 3
)

// DefaultScriptName is the script file loaded when a location names none.
const DefaultScriptName = "build.bbx"

// Location is where a project's script lives on disk.
type Location struct {
	// Root is the absolute, cleaned project directory.
	Root   string
	Script string
}

// NewLocation normalizes root and script.
func NewLocation(root, script string) (Location, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Location{}, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}
	if script == "" {
		script = DefaultScriptName
	}
	return Location{Root: filepath.Clean(abs), Script: script}, nil
}

// ScriptPath returns the path of the script file.
func (l Location) ScriptPath() string {
	return filepath.Join(l.Root, l.Script)
}

func (l Location) String() string {
	return l.ScriptPath()
}

// Kind tells how a project joined the build.
type Kind int

const (
	MainProject Kind = iota
	PreludeProject
	PluginProject
	ExternalProject
)

// Project is one participating project.
type Project struct {
	ID    ID
	Kind  Kind
	Graph *graph.BuildGraph
	// Location is zero for the prelude and preloaded plugins.
	Location Location
	// Name is the plugin name of a preloaded plugin.
	Name string
}

// BaseDirectory returns the directory relative paths of the project are
// resolved against. Compiled-in projects have none.
func (p *Project) BaseDirectory() string {
	return p.Location.Root
}
