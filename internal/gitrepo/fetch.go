package gitrepo

import (
	"errors"
	"log/slog"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/retry"
)

// Fetch contacts the remote, downloads every branch into
// refs/remotes/origin/*, and returns an
// annotated handle to the fetched tip on refs/remotes/origin/{branch}.
// The network call is wrapped with the same retry policy as Clone, since
// both are transient-failure-prone operations against the same remote.
func (r *Repo) Fetch(branch string) (FetchHead, error) {
	url := r.remoteURL()
	policy := retry.DefaultPolicy()
	err := withRetry("fetch", url, policy, func() error {
		ferr := r.repo.Fetch(&git.FetchOptions{
			RemoteName: "origin",
			Tags:       git.NoTags,
			RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
			Auth:       defaultAuth(url),
		})
		if ferr != nil && !errors.Is(ferr, git.NoErrAlreadyUpToDate) {
			return classifyRepoError("fetch", url, ferr)
		}
		return nil
	})
	if err != nil {
		return FetchHead{}, err
	}

	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return FetchHead{}, &gdeperrors.GitError{Message: "no such remote branch: " + branch, Err: err}
	}
	return FetchHead{Branch: branch, Hash: ref.Hash().String()}, nil
}

// RemoteHead performs a lightweight ls-remote-style check against url
// without a full clone or fetch, letting callers skip a fetch when the
// remote tip is already known (an optimization, never an observable state
// change: it does not affect the Divergence State taxonomy).
func RemoteHead(url, branch string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &ggitcfg.RemoteConfig{Name: "origin", URLs: []string{url}})
	refs, err := remote.List(&git.ListOptions{Auth: defaultAuth(url)})
	if err != nil {
		return "", &gdeperrors.GitError{Message: "ls-remote failed for " + url, Err: err}
	}

	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash().String(), nil
		}
	}
	return "", &gdeperrors.GitError{Message: "branch not found on remote: " + branch}
}

func (r *Repo) remoteURL() string {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return ""
	}
	cfg := remote.Config()
	if cfg == nil || len(cfg.URLs) == 0 {
		return ""
	}
	return cfg.URLs[0]
}

// RemoteURL exposes the configured origin URL for callers (the Updater's
// RemoteHead optimization) that need it without a fetch.
func (r *Repo) RemoteURL() string {
	return r.remoteURL()
}

func (r *Repo) logf(msg string, args ...any) {
	slog.Debug(msg, append([]any{logfields.Path(r.path)}, args...)...)
}
