package config

import "fmt"

// RepoLike is the Repo field's sum type: a config names its repository as
// exactly one of a local path, a remote URL cloned to the default path, or a
// remote URL cloned to an explicit path. Implementations without tagged
// unions get a small fixed set of concrete types satisfying a marker method.
type RepoLike interface {
	repoLike()
	fmt.Stringer
}

// LocalRepo names an existing working copy already on disk.
type LocalRepo struct {
	Path string
}

func (LocalRepo) repoLike() {}
func (r LocalRepo) String() string { return fmt.Sprintf("local(%s)", r.Path) }

// RemoteRepo names a URL to clone to the resolver's default destination path.
type RemoteRepo struct {
	URL string
}

func (RemoteRepo) repoLike() {}
func (r RemoteRepo) String() string { return fmt.Sprintf("remote(%s)", r.URL) }

// RemoteIntoRepo names a URL to clone to an explicit destination path.
type RemoteIntoRepo struct {
	URL  string
	Path string
}

func (RemoteIntoRepo) repoLike() {}
func (r RemoteIntoRepo) String() string { return fmt.Sprintf("remote(%s)->%s", r.URL, r.Path) }
