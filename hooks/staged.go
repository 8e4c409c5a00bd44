package hooks

import (
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/chuangyeshuo/vanadev/errors"
)

// StagedFiles returns the repo-relative paths staged for commit, sorted.
// Deleted files are excluded: hooks cannot run against a path that will
// not exist after the commit.
func StagedFiles(repoRoot string) ([]string, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.Wrapf(errors.ErrNotARepository, "%s", repoRoot)
		}
		return nil, errors.Wrap(err, "open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "repository worktree")
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, errors.Wrap(err, "worktree status")
	}

	var staged []string
	for path, fileStatus := range status {
		switch fileStatus.Staging {
		case git.Added, git.Modified, git.Renamed, git.Copied:
			staged = append(staged, path)
		}
	}
	sort.Strings(staged)
	return staged, nil
}

// ListFiles returns every tracked file in the repository HEAD, sorted.
// Used by `hooks run --all-files`.
func ListFiles(repoRoot string) ([]string, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.Wrapf(errors.ErrNotARepository, "%s", repoRoot)
		}
		return nil, errors.Wrap(err, "open repository")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "repository head")
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, errors.Wrap(err, "head commit")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrap(err, "head tree")
	}

	var files []string
	iter := tree.Files()
	defer iter.Close()
	if err := iter.ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "walk head tree")
	}
	sort.Strings(files)
	return files, nil
}
