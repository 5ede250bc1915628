package gitrepo

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/retry"
)

// Open opens an existing working copy at path.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, &gdeperrors.LocalRepoNotFoundError{Path: path}
	}
	return &Repo{path: path, repo: repo}, nil
}

// Clone clones url to path using default credentials, wrapped with retry for
// transient network failures per internal/retry's policy.
func Clone(url, path string) (*Repo, error) {
	policy := retry.DefaultPolicy()
	var result *Repo
	err := withRetry("clone", url, policy, func() error {
		repo, err := git.PlainClone(path, false, &git.CloneOptions{
			URL:  url,
			Auth: defaultAuth(url),
		})
		if err != nil {
			return classifyRepoError("clone", url, err)
		}
		result = &Repo{path: path, repo: repo}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("cloned repository", logfields.URL(url), logfields.Path(path))
	return result, nil
}

// OpenOrClone opens path; on failure, clones from url (when non-empty),
// otherwise fails with LocalRepoNotFoundError per the Repo Capability contract.
func OpenOrClone(path string, url string) (*Repo, error) {
	repo, err := Open(path)
	if err == nil {
		return repo, nil
	}
	if url == "" {
		return nil, &gdeperrors.LocalRepoNotFoundError{Path: path}
	}
	return Clone(url, path)
}

// DefaultBranch enumerates remote-tracking branches and returns the short
// name of the first one ending in /main or /master, in enumeration order.
func (r *Repo) DefaultBranch() (string, error) {
	refs, err := r.repo.References()
	if err != nil {
		return "", &gdeperrors.BranchInferFailedError{}
	}
	defer refs.Close()

	var found string
	walkErr := refs.ForEach(func(ref *plumbing.Reference) error {
		if found != "" {
			return nil
		}
		name := ref.Name()
		if !name.IsRemote() {
			return nil
		}
		short := name.Short()
		if strings.HasSuffix(short, "/main") || strings.HasSuffix(short, "/master") {
			parts := strings.SplitN(short, "/", 2)
			if len(parts) == 2 {
				found = parts[1]
			}
		}
		return nil
	})
	if walkErr != nil || found == "" {
		return "", &gdeperrors.BranchInferFailedError{}
	}
	return found, nil
}

func classifyRepoError(op, url string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return &gdeperrors.RemoteRepoNotFoundError{URL: url, Err: err}
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "invalid username or password"):
		return &gdeperrors.GitError{Message: "authentication failed for " + url, Code: "auth", Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &gdeperrors.RemoteRepoNotFoundError{URL: url, Err: err}
	case strings.Contains(l, "unsupported protocol"):
		return &gdeperrors.GitError{Message: "unsupported protocol for " + url, Code: "protocol", Err: err}
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		return &gdeperrors.GitError{Message: op + " rate limited for " + url, Code: "rate_limit", Err: err}
	case strings.Contains(l, "timeout") || strings.Contains(l, "i/o timeout"):
		return &gdeperrors.GitError{Message: op + " timed out for " + url, Code: "timeout", Err: err}
	default:
		return &gdeperrors.GitError{Message: op + " failed for " + url, Err: err}
	}
}

func isTransient(err error) bool {
	var gitErr *gdeperrors.GitError
	if errors.As(err, &gitErr) {
		switch gitErr.Code {
		case "timeout", "rate_limit":
			return true
		}
	}
	return false
}
