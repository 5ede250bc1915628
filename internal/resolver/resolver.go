// Package resolver implements the Repo Resolver (C4): given CLI overrides and
// a Config Record, it yields an open Repo Capability handle, the on-disk
// repo path, the branch to track, and the loaded Config Record itself.
package resolver

import (
	"os"
	"path/filepath"

	"github.com/mobskuchen/gdep/internal/config"
	"github.com/mobskuchen/gdep/internal/gitrepo"
)

// DefaultConfigName is the config file name assumed when --config-inside is
// given without an explicit --repo-config filename.
const DefaultConfigName = "gdep.yaml"

// DefaultRepoDirName is the clone/open destination used when no CLI repo
// override is given.
const DefaultRepoDirName = "gdep_used_repo"

// Overrides mirrors the CLI surface in spec.md S:6 that influences resolution.
type Overrides struct {
	RemoteRepo   string // -r
	LocalRepo    string // -l
	RepoConfig   string // -c: config filename relative to repo root
	StaticConfig string // -s: config path outside the repo, overrides RepoConfig
	Branch       string // -b: override inferred branch
	ConfigInside bool   // -i: config lives inside the repo
}

// Resolved is the output of Resolve: everything the supervisor needs to start a run.
type Resolved struct {
	Repo   *gitrepo.Repo
	Path   string
	Branch string
	Config *config.Config
}

// Resolve implements the 3-step algorithm from spec.md S:4.3.
func Resolve(ov Overrides) (*Resolved, error) {
	var (
		repo   *gitrepo.Repo
		path   string
		cfg    *config.Config
		err    error
	)

	if ov.StaticConfig == "" && (ov.ConfigInside || ov.RepoConfig != "") {
		repo, path, err = resolveRepoFromCLI(ov)
		if err != nil {
			return nil, err
		}
		cfg, err = config.Load(filepath.Join(path, configFileName(ov)))
		if err != nil {
			return nil, err
		}
	} else {
		staticPath := ov.StaticConfig
		if staticPath == "" {
			staticPath = DefaultConfigName
		}
		cfg, err = config.Load(staticPath)
		if err != nil {
			return nil, err
		}
		repo, path, err = resolveRepoFromConfig(cfg.Repo)
		if err != nil {
			return nil, err
		}
	}

	branch := ov.Branch
	if branch == "" {
		branch, err = repo.DefaultBranch()
		if err != nil {
			return nil, err
		}
	}

	return &Resolved{Repo: repo, Path: path, Branch: branch, Config: cfg}, nil
}

func configFileName(ov Overrides) string {
	if ov.RepoConfig != "" {
		return ov.RepoConfig
	}
	return DefaultConfigName
}

// resolveRepoFromCLI implements step 1: resolve the repo first using
// --local-repo/--remote-repo, falling back to the default path.
func resolveRepoFromCLI(ov Overrides) (*gitrepo.Repo, string, error) {
	path := ov.LocalRepo
	if path == "" {
		path = defaultRepoPath()
	}
	repo, err := gitrepo.OpenOrClone(path, ov.RemoteRepo)
	if err != nil {
		return nil, "", err
	}
	return repo, path, nil
}

// resolveRepoFromConfig implements step 2's Local/Remote/RemoteInto branching.
func resolveRepoFromConfig(repoLike config.RepoLike) (*gitrepo.Repo, string, error) {
	switch v := repoLike.(type) {
	case config.LocalRepo:
		repo, err := gitrepo.Open(v.Path)
		if err != nil {
			return nil, "", err
		}
		return repo, v.Path, nil
	case config.RemoteRepo:
		path := defaultRepoPath()
		repo, err := gitrepo.Clone(v.URL, path)
		if err != nil {
			return nil, "", err
		}
		return repo, path, nil
	case config.RemoteIntoRepo:
		repo, err := gitrepo.Clone(v.URL, v.Path)
		if err != nil {
			return nil, "", err
		}
		return repo, v.Path, nil
	default:
		panic("resolver: unhandled RepoLike variant")
	}
}

func defaultRepoPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultRepoDirName
	}
	return filepath.Join(cwd, DefaultRepoDirName)
}
