package gitrepo

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
)

// Divergence computes ahead/behind counts between local HEAD and
// refs/remotes/origin/{branch}. go-git has no direct equivalent of git2's
// graph_ahead_behind, so this composes the teacher's own ancestor-BFS idiom
// (see isAncestor in the teacher's internal/git/update.go) applied
// symmetrically: the commits reachable from one tip but not the other are
// exactly the ahead/behind counts relative to the merge base.
func (r *Repo) Divergence(branch string) (DivergenceState, error) {
	head, err := r.repo.Head()
	if err != nil {
		return DivergenceState{}, &gdeperrors.GitError{Message: "no HEAD", Err: err}
	}
	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return DivergenceState{}, &gdeperrors.GitError{Message: "no remote-tracking ref for " + branch, Err: err}
	}

	local := head.Hash()
	remote := remoteRef.Hash()
	if local == remote {
		return newDivergence(0, 0), nil
	}

	localAncestors, err := r.ancestorSet(local)
	if err != nil {
		return DivergenceState{}, &gdeperrors.GitError{Message: "ancestor walk failed", Err: err}
	}
	remoteAncestors, err := r.ancestorSet(remote)
	if err != nil {
		return DivergenceState{}, &gdeperrors.GitError{Message: "ancestor walk failed", Err: err}
	}

	ahead := 0
	for h := range localAncestors {
		if _, ok := remoteAncestors[h]; !ok {
			ahead++
		}
	}
	behind := 0
	for h := range remoteAncestors {
		if _, ok := localAncestors[h]; !ok {
			behind++
		}
	}

	return newDivergence(ahead, behind), nil
}

// ancestorSet returns start and every commit reachable from it via parent
// edges, via breadth-first traversal of the commit graph.
func (r *Repo) ancestorSet(start plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return nil, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return seen, nil
}

// isAncestor reports whether a is an ancestor of (or equal to) b, used by
// Analyze to classify fast-forward vs normal-merge without computing
// full ahead/behind counts.
func (r *Repo) isAncestor(a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	commitB, err := r.repo.CommitObject(b)
	if err != nil {
		return false, err
	}
	commitA, err := r.repo.CommitObject(a)
	if err != nil {
		return false, err
	}
	return commitA.IsAncestor(commitB)
}
