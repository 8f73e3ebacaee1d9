package plugin

import (
	"fmt"
	"os"
	"time"

	"github.com/specialistvlad/bibixgo/internal/value"
)

// BuildEnv describes the machine the build runs on.
type BuildEnv struct {
	OS   string
	Arch string
}

// ProgressLogger records progress of one rule invocation. Lines are kept
// with the cache record of the target and mirrored to the process logger.
type ProgressLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Directories gives rules access to the repository directories they may
// write to.
type Directories interface {
	// SharedDirectory returns, creating it if needed, a directory shared by
	// every invocation that asks for the same name.
	SharedDirectory(name string) (string, error)
}

// BuildContext is the input of a build rule invocation.
type BuildContext struct {
	Env BuildEnv

	// MainBaseDirectory is the root of the main project.
	MainBaseDirectory string
	// CallerBaseDirectory is the root of the project whose expression called
	// the rule. Empty when the caller is a compiled-in plugin.
	CallerBaseDirectory string
	// RuleDefinedDirectory is the root of the project defining the rule.
	// Empty for compiled-in plugins.
	RuleDefinedDirectory string

	Arguments map[string]value.Value

	// TargetIDData is the canonical encoding of the invocation and TargetID
	// its hex digest.
	TargetIDData    []byte
	TargetID        string
	InputHashString string

	// HashChanged is false when a previous build recorded the same inputs.
	// A rule seeing false may return PrevResult without doing any work.
	HashChanged   bool
	PrevBuildTime time.Time
	PrevResult    value.Value

	Logger ProgressLogger

	destDirectory string
	dirs          Directories
}

// NewBuildContext wires the private parts of a context. It is used by the
// engine; rules only read contexts.
func NewBuildContext(bc BuildContext, destDirectory string, dirs Directories) *BuildContext {
	bc.destDirectory = destDirectory
	bc.dirs = dirs
	return &bc
}

// DestDirectory returns the output directory of this invocation, creating
// it on first use.
func (c *BuildContext) DestDirectory() (string, error) {
	if err := os.MkdirAll(c.destDirectory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}
	return c.destDirectory, nil
}

// SharedDirectory returns the named shared directory.
func (c *BuildContext) SharedDirectory(name string) (string, error) {
	if c.dirs == nil {
		return "", fmt.Errorf("no shared directories available for %s", name)
	}
	return c.dirs.SharedDirectory(name)
}

// Arg returns the argument bound to name.
func (c *BuildContext) Arg(name string) (value.Value, error) {
	return arg(c.Arguments, name)
}

// StringArg returns a string argument.
func (c *BuildContext) StringArg(name string) (string, error) {
	return stringArg(c.Arguments, name)
}

// OptionalStringArg returns a string argument, or "" and false when the
// argument is none.
func (c *BuildContext) OptionalStringArg(name string) (string, bool, error) {
	return optionalStringArg(c.Arguments, name)
}

// ActionContext is the input of an action rule invocation.
type ActionContext struct {
	Env               BuildEnv
	MainBaseDirectory string
	Arguments         map[string]value.Value
	Logger            ProgressLogger
}

func (c *ActionContext) Arg(name string) (value.Value, error) {
	return arg(c.Arguments, name)
}

func arg(args map[string]value.Value, name string) (value.Value, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("no such argument: %s", name)
	}
	return v, nil
}

func stringArg(args map[string]value.Value, name string) (string, error) {
	v, err := arg(args, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(value.String)
	if !ok {
		return "", fmt.Errorf("argument %s is %s, not a string", name, v)
	}
	return string(s), nil
}

func optionalStringArg(args map[string]value.Value, name string) (string, bool, error) {
	v, err := arg(args, name)
	if err != nil {
		return "", false, err
	}
	switch s := v.(type) {
	case value.NoneValue:
		return "", false, nil
	case value.String:
		return string(s), true, nil
	}
	return "", false, fmt.Errorf("argument %s is %s, not a string", name, v)
}
