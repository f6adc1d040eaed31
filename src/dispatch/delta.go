package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Delta restricts a dispatch run to image families touched by recent
// changes: uncommitted worktree edits plus commits not yet on the
// baseline branch.
type Delta struct {
	RootDir        string
	BaselineBranch string
	Verbose        bool
}

// ChangedFamilies returns the set of family names with pending changes
// under the image tree. A change anywhere under the provisioning root
// is conservative: fragments and bundles can feed any family, so it
// lifts the restriction entirely. Returns nil (deploy everything) when
// git is unavailable or nothing can be diffed.
func (d *Delta) ChangedFamilies(ctx context.Context, imagesDir, provisionDir string) (map[string]bool, error) {
	changed, err := d.changedFiles(ctx)
	if err != nil || changed == nil {
		return nil, err
	}
	families, all := familiesFromChanges(changed, imagesDir, provisionDir)
	if all {
		return nil, nil
	}
	return families, nil
}

// familiesFromChanges maps changed repo-relative paths to family names.
// The second return is true when a provisioning-tree change forces a
// full dispatch.
func familiesFromChanges(changed map[string]bool, imagesDir, provisionDir string) (map[string]bool, bool) {
	imagesPrefix := filepath.ToSlash(imagesDir) + "/"
	provisionPrefix := filepath.ToSlash(provisionDir) + "/"

	families := map[string]bool{}
	for path := range changed {
		path = filepath.ToSlash(path)
		if strings.HasPrefix(path, provisionPrefix) {
			return nil, true
		}
		if !strings.HasPrefix(path, imagesPrefix) {
			continue
		}
		rest := strings.TrimPrefix(path, imagesPrefix)
		family := strings.SplitN(rest, "/", 2)[0]
		if family != "" {
			families[family] = true
		}
	}
	return families, false
}

// changedFiles collects changed paths from the worktree plus the diff
// against the baseline branch. Returns nil when no baseline is usable.
func (d *Delta) changedFiles(ctx context.Context) (map[string]bool, error) {
	repo, err := git.PlainOpen(d.RootDir)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: not a git repo, deploying everything\n")
		}
		return nil, nil
	}

	changed := make(map[string]bool)

	worktree, err := d.worktreeChanges(repo)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: worktree diff failed: %v, deploying everything\n", err)
		}
		return nil, nil
	}
	for p := range worktree {
		changed[p] = true
	}

	branch, err := d.branchChanges(ctx, repo)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: branch diff failed: %v, deploying everything\n", err)
		}
		return nil, nil
	}
	for p := range branch {
		changed[p] = true
	}

	return changed, nil
}

// worktreeChanges returns files with uncommitted modifications (staged
// plus unstaged).
func (d *Delta) worktreeChanges(repo *git.Repository) (map[string]bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	changed := make(map[string]bool)
	for path, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		changed[path] = true
	}
	return changed, nil
}

// branchChanges returns files changed between HEAD and the baseline
// branch. When HEAD is the baseline itself, it diffs against the
// parent commit so a push to the default branch still narrows.
func (d *Delta) branchChanges(ctx context.Context, repo *git.Repository) (map[string]bool, error) {
	baseline := d.BaselineBranch
	if baseline == "" {
		baseline = "main"
	}

	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting HEAD commit: %w", err)
	}

	baseRef, err := repo.Reference(plumbing.NewBranchReferenceName(baseline), true)
	if err != nil {
		baseRef, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", baseline), true)
		if err != nil {
			return nil, nil // no baseline — worktree changes only
		}
	}
	baseCommit, err := repo.CommitObject(baseRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting baseline commit: %w", err)
	}

	if headCommit.Hash == baseCommit.Hash {
		if headCommit.NumParents() == 0 {
			return nil, nil
		}
		parent, err := headCommit.Parent(0)
		if err != nil {
			return nil, nil
		}
		baseCommit = parent
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}
	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	changed := make(map[string]bool)
	for _, change := range changes {
		if change.To.Name != "" {
			changed[change.To.Name] = true
		}
		if change.From.Name != "" {
			changed[change.From.Name] = true
		}
	}
	return changed, nil
}
