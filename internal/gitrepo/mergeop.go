package gitrepo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/logfields"
)

// Analyze classifies the relationship between local HEAD and a fetched
// commit, mirroring git's own merge-analysis: up-to-date, fast-forward
// possible, or a normal merge required.
func (r *Repo) Analyze(branch string, fetched FetchHead) (MergeAnalysis, error) {
	head, err := r.repo.Head()
	if err != nil {
		return 0, &gdeperrors.GitError{Message: "no HEAD", Err: err}
	}
	remoteHash := plumbing.NewHash(fetched.Hash)
	if head.Hash() == remoteHash {
		return AnalysisUpToDate, nil
	}
	ancestor, err := r.isAncestor(head.Hash(), remoteHash)
	if err != nil {
		return 0, &gdeperrors.GitError{Message: "ancestor check failed", Err: err}
	}
	if ancestor {
		return AnalysisFastForward, nil
	}
	contained, err := r.isAncestor(remoteHash, head.Hash())
	if err != nil {
		return 0, &gdeperrors.GitError{Message: "ancestor check failed", Err: err}
	}
	if contained {
		return AnalysisUpToDate, nil
	}
	return AnalysisNormal, nil
}

// FastForward advances refs/heads/{branch} to the fetched commit, moves
// HEAD, and performs a forced checkout. Creates the branch ref if absent.
func (r *Repo) FastForward(branch string, fetched FetchHead) error {
	branchRef := plumbing.NewBranchReferenceName(branch)
	remoteHash := plumbing.NewHash(fetched.Hash)

	wt, err := r.repo.Worktree()
	if err != nil {
		return &gdeperrors.GitError{Message: "worktree unavailable", Err: err}
	}

	if _, err := r.repo.Reference(branchRef, true); err != nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Create: true, Hash: remoteHash, Force: true}); err != nil {
			return &gdeperrors.UpdateFailedError{Message: "fast-forward checkout (new branch) failed", Err: err}
		}
		return nil
	}

	if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return &gdeperrors.UpdateFailedError{Message: "checkout before fast-forward failed", Err: err}
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteHash, Mode: git.HardReset}); err != nil {
		return &gdeperrors.UpdateFailedError{Message: "fast-forward reset failed", Err: err}
	}
	slog.Info("fast-forwarded", logfields.Path(r.path), slog.String("branch", branch), slog.String("to", fetched.Hash[:min(8, len(fetched.Hash))]))
	return nil
}

// ThreeWayMerge computes the merge base of local and remote, diffs each side
// against it, and merges non-conflicting changes into the working directory.
// Paths changed on both sides with different results are left with conflict
// markers and reported as conflicts without committing; on a clean merge a
// merge commit with both parents is created and checked out.
func (r *Repo) ThreeWayMerge(branch string, fetched FetchHead) (MergeOutcome, error) {
	localRef, err := r.repo.Head()
	if err != nil {
		return MergeOutcome{}, &gdeperrors.GitError{Message: "no HEAD", Err: err}
	}
	localCommit, err := r.repo.CommitObject(localRef.Hash())
	if err != nil {
		return MergeOutcome{}, &gdeperrors.GitError{Message: "local commit unreadable", Err: err}
	}
	remoteHash := plumbing.NewHash(fetched.Hash)
	remoteCommit, err := r.repo.CommitObject(remoteHash)
	if err != nil {
		return MergeOutcome{}, &gdeperrors.GitError{Message: "remote commit unreadable", Err: err}
	}

	bases, err := localCommit.MergeBase(remoteCommit)
	if err != nil || len(bases) == 0 {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "no common ancestor for merge", Err: err}
	}
	base := bases[0]

	baseTree, err := base.Tree()
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "base tree unreadable", Err: err}
	}
	localTree, err := localCommit.Tree()
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "local tree unreadable", Err: err}
	}
	remoteTree, err := remoteCommit.Tree()
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "remote tree unreadable", Err: err}
	}

	oursChanged, err := changedPaths(baseTree, localTree)
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "diff base/local failed", Err: err}
	}
	theirsChanged, err := changedPaths(baseTree, remoteTree)
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "diff base/remote failed", Err: err}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return MergeOutcome{}, &gdeperrors.GitError{Message: "worktree unavailable", Err: err}
	}

	var conflicts []string
	var toApply []string
	for path, theirsHash := range theirsChanged {
		oursHash, oursTouched := oursChanged[path]
		if oursTouched && oursHash != theirsHash {
			conflicts = append(conflicts, path)
			continue
		}
		if !oursTouched {
			toApply = append(toApply, path)
		}
	}

	if len(conflicts) > 0 {
		for _, path := range conflicts {
			if err := writeConflictMarkers(r.path, path, localTree, remoteTree); err != nil {
				slog.Warn("failed to write conflict markers", logfields.Path(path), slog.String("error", err.Error()))
			}
		}
		return MergeOutcome{Conflicted: true, Conflicts: conflicts}, nil
	}

	for _, path := range toApply {
		if err := applyTheirs(r.path, path, remoteTree); err != nil {
			return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "failed to apply change for " + path, Err: err}
		}
		if _, err := wt.Add(path); err != nil {
			return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "failed to stage " + path, Err: err}
		}
	}

	commitHash, err := wt.Commit(fmt.Sprintf("merge %s into %s", fetched.Hash[:min(8, len(fetched.Hash))], branch), &git.CommitOptions{
		Parents: []plumbing.Hash{localRef.Hash(), remoteHash},
		Author:  &object.Signature{Name: "gdep", Email: "gdep@localhost"},
	})
	if err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "merge commit failed", Err: err}
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: commitHash, Force: true}); err != nil {
		return MergeOutcome{}, &gdeperrors.UpdateFailedError{Message: "checkout after merge failed", Err: err}
	}

	return MergeOutcome{CommitHash: commitHash.String()}, nil
}

// changedPaths returns, for every path differing between from and to, the
// hash of the blob on the "to" side (omitted for deletions).
func changedPaths(from, to *object.Tree) (map[string]plumbing.Hash, error) {
	changes, err := object.DiffTree(from, to)
	if err != nil {
		return nil, err
	}
	result := make(map[string]plumbing.Hash, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			result[change.To.Name] = change.To.TreeEntry.Hash
		} else if change.From.Name != "" {
			result[change.From.Name] = plumbing.ZeroHash // deletion
		}
	}
	return result, nil
}

func applyTheirs(repoPath, path string, theirsTree *object.Tree) error {
	full := filepath.Join(repoPath, path)
	f, err := theirsTree.File(path)
	if err != nil {
		// file absent on their side: deletion.
		return os.Remove(full)
	}
	content, err := f.Contents()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

func writeConflictMarkers(repoPath, path string, oursTree, theirsTree *object.Tree) error {
	full := filepath.Join(repoPath, path)
	oursContent := fileContentsOrEmpty(oursTree, path)
	theirsContent := fileContentsOrEmpty(theirsTree, path)

	merged := fmt.Sprintf("<<<<<<< ours\n%s=======\n%s>>>>>>> theirs\n", oursContent, theirsContent)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(merged), 0o644)
}

func fileContentsOrEmpty(tree *object.Tree, path string) string {
	f, err := tree.File(path)
	if err != nil {
		return ""
	}
	content, err := f.Contents()
	if err != nil {
		return ""
	}
	return content
}
