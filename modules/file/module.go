// Package file provides the preloaded "file" plugin with action rules that
// copy files and manage directories.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// PackageName is the package the plugin script declares.
const PackageName = "com.giyeok.bibix.plugins.file"

// Script is the source of the plugin.
const Script = `package com.giyeok.bibix.plugins.file

action def copy(
  src: {file, set<file>, directory},
  dest: path,
  overwrite?: boolean,
) = native:Copy

action def clearDirectory(directory: directory) = native:ClearDirectory

action def makeDirectory(dest: path) = native:MakeDirectory
`

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the plugin script and its action rules.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(&registry.Plugin{Name: "file", Script: Script})
	r.RegisterActionRule(registry.Capability{Module: PackageName, Class: "Copy"}, Copy)
	r.RegisterActionRule(registry.Capability{Module: PackageName, Class: "ClearDirectory"}, ClearDirectory)
	r.RegisterActionRule(registry.Capability{Module: PackageName, Class: "MakeDirectory"}, MakeDirectory)
}

// Copy copies a file, a set of files or a directory tree to dest.
//
// A single file is copied to dest itself unless dest is a directory. Files
// already present at the destination are only replaced with overwrite.
func Copy(ctx context.Context, ac *plugin.ActionContext) (plugin.Return, error) {
	src, err := ac.Arg("src")
	if err != nil {
		return nil, err
	}
	destArg, err := ac.Arg("dest")
	if err != nil {
		return nil, err
	}
	dest := value.Stringify(destArg)
	overwrite := false
	if v, err := ac.Arg("overwrite"); err == nil {
		if b, ok := v.(value.Boolean); ok {
			overwrite = bool(b)
		}
	}

	switch src := src.(type) {
	case value.Directory:
		if err := copyTree(string(src), dest, overwrite); err != nil {
			return nil, err
		}
		ac.Logger.Info("Copied directory.", "src", string(src), "dest", dest)
		return plugin.Done()
	case value.File:
		return copyFiles(ac, []string{string(src)}, dest, overwrite)
	case value.Set:
		files := make([]string, 0, len(src.Values))
		for _, v := range src.Values {
			f, ok := v.(value.File)
			if !ok {
				return nil, fmt.Errorf("cannot copy %s", v)
			}
			files = append(files, string(f))
		}
		return copyFiles(ac, files, dest, overwrite)
	}
	return nil, fmt.Errorf("cannot copy %s", src)
}

func copyFiles(ac *plugin.ActionContext, files []string, dest string, overwrite bool) (plugin.Return, error) {
	info, err := os.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		for _, f := range files {
			if err := copyFile(f, filepath.Join(dest, filepath.Base(f)), overwrite); err != nil {
				return nil, err
			}
		}
	case err == nil || errors.Is(err, os.ErrNotExist):
		if len(files) != 1 {
			return nil, fmt.Errorf("cannot copy %d files to %s which is not a directory", len(files), dest)
		}
		if err := copyFile(files[0], dest, overwrite); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	ac.Logger.Info("Copied files.", "count", len(files), "dest", dest)
	return plugin.Done()
}

func copyFile(src, dest string, overwrite bool) error {
	if _, err := os.Stat(dest); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", dest)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dest string, overwrite bool) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, overwrite)
	})
}

// ClearDirectory removes everything inside a directory, keeping the
// directory itself.
func ClearDirectory(ctx context.Context, ac *plugin.ActionContext) (plugin.Return, error) {
	arg, err := ac.Arg("directory")
	if err != nil {
		return nil, err
	}
	dir := value.Stringify(arg)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}
	ac.Logger.Info("Cleared directory.", "directory", dir, "removed", len(entries))
	return plugin.Done()
}

// MakeDirectory creates a directory and any missing parents.
func MakeDirectory(ctx context.Context, ac *plugin.ActionContext) (plugin.Return, error) {
	arg, err := ac.Arg("dest")
	if err != nil {
		return nil, err
	}
	dest := value.Stringify(arg)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	return plugin.Done()
}
