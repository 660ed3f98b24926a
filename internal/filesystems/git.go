package filesystems

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitFS implements FileSystem for git repositories shallow-cloned into memory
type GitFS struct {
	*BillyFS

	repoURL string
	ref     string
}

// NewGitFS clones repoURL at ref (default branch when empty) into an
// in-memory worktree
func NewGitFS(ctx context.Context, repoURL, ref string) (*GitFS, error) {
	worktree, err := cloneShallow(ctx, repoURL, ref)
	if err != nil && ref != "" {
		// If branch clone fails, fall back to the default branch
		ref = ""
		worktree, err = cloneShallow(ctx, repoURL, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository %s: %w", repoURL, err)
	}

	return &GitFS{
		BillyFS: NewBillyFS(worktree),
		repoURL: repoURL,
		ref:     ref,
	}, nil
}

func cloneShallow(ctx context.Context, repoURL, ref string) (billy.Filesystem, error) {
	worktree := memfs.New()

	// Clone with depth 1 for performance
	opts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	if _, err := git.CloneContext(ctx, memory.NewStorage(), worktree, opts); err != nil {
		return nil, err
	}
	return worktree, nil
}

// RepoURL returns the remote the filesystem was cloned from
func (gfs *GitFS) RepoURL() string {
	return gfs.repoURL
}

// Ref returns the branch that was cloned, empty for the default branch
func (gfs *GitFS) Ref() string {
	return gfs.ref
}
