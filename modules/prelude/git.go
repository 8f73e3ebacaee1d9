package prelude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// gitSharedDirectory is the shared directory holding every checkout.
const gitSharedDirectory = "com.giyeok.bibix.plugins.bibix.git"

// Git checks out a git repository into a shared directory and returns the
// project inside it. Existing checkouts are fetched instead of re-cloned.
func Git(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	url, err := bc.StringArg("url")
	if err != nil {
		return nil, err
	}
	ref, err := refSpec(bc)
	if err != nil {
		return nil, err
	}
	subPath, err := bc.StringArg("path")
	if err != nil {
		return nil, err
	}
	scriptName, hasScript, err := bc.OptionalStringArg("scriptName")
	if err != nil {
		return nil, err
	}

	repos, err := bc.SharedDirectory(gitSharedDirectory)
	if err != nil {
		return nil, err
	}
	// The target id covers url, ref, branch, tag and path, so every
	// distinct checkout gets its own directory.
	if bc.TargetID == "" {
		return nil, errors.New("git checkout needs a target id")
	}
	dir := filepath.Join(repos, bc.TargetID)

	return plugin.WithDirectoryLock{
		Directory: dir,
		WithLock: func() (plugin.Return, error) {
			if err := checkout(ctx, bc.Logger, dir, url, ref); err != nil {
				return nil, fmt.Errorf("git checkout of %s @ %s failed: %w", url, ref, err)
			}
			fields := map[string]value.Value{
				"projectRoot": value.Directory(filepath.Join(dir, filepath.FromSlash(subPath))),
				"scriptName":  value.None,
			}
			if hasScript {
				fields["scriptName"] = value.String(scriptName)
			}
			return plugin.Value(value.NClassInstance{NameTokens: []string{"BibixProject"}, Fields: fields})
		},
	}, nil
}

// refSpec picks the reference to check out. At most one of ref, branch and
// tag may be given; main is the default branch.
func refSpec(bc *plugin.BuildContext) (plumbing.ReferenceName, error) {
	var given []plumbing.ReferenceName
	if ref, ok, err := bc.OptionalStringArg("ref"); err != nil {
		return "", err
	} else if ok {
		given = append(given, plumbing.ReferenceName(ref))
	}
	if branch, ok, err := bc.OptionalStringArg("branch"); err != nil {
		return "", err
	} else if ok {
		given = append(given, plumbing.NewBranchReferenceName(branch))
	}
	if tag, ok, err := bc.OptionalStringArg("tag"); err != nil {
		return "", err
	} else if ok {
		given = append(given, plumbing.NewTagReferenceName(tag))
	}
	switch len(given) {
	case 0:
		return plumbing.NewBranchReferenceName("main"), nil
	case 1:
		return given[0], nil
	}
	return "", errors.New("only one of ref, branch and tag can be specified")
}

func checkout(ctx context.Context, logger plugin.ProgressLogger, dir, url string, ref plumbing.ReferenceName) error {
	repo, err := git.PlainOpen(dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		logger.Info("Cloning git repository.", "url", url, "ref", ref.String())
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return err
		}
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           url,
			ReferenceName: ref,
			SingleBranch:  true,
		})
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		logger.Info("Fetching into the existing repository.", "url", url, "ref", ref.String())
		spec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: git.DefaultRemoteName,
			RefSpecs:   []gitconfig.RefSpec{spec},
			Force:      true,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return err
		}
	}

	resolved, err := repo.Reference(ref, true)
	if err != nil {
		return fmt.Errorf("reference %s not found: %w", ref, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: resolved.Hash(), Force: true})
}
