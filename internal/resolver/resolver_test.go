package resolver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// newTestRepo creates an on-disk repo with a "main" default branch and a
// committed config file, returning the repo directory.
func newTestRepo(t *testing.T, remoteName string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	if remoteName != "" {
		_, err = repo.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{remoteName}})
		require.NoError(t, err)
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gdep.yaml"), []byte("name: inside\nscript: \"echo hi\"\nlocal_repo: true\nrepo: \""+dir+"\"\n"), 0o644))
	_, err = wt.Add("gdep.yaml")
	require.NoError(t, err)
	head, err := wt.Commit("add config", &git.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)

	if remoteName != "" {
		ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), head)
		require.NoError(t, repo.Storer.SetReference(ref))
	}
	return dir
}

func TestResolveConfigInsideUsesCLIRepoOverride(t *testing.T) {
	dir := newTestRepo(t, "")

	resolved, err := Resolve(Overrides{LocalRepo: dir, ConfigInside: true, Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, dir, resolved.Path)
	require.Equal(t, "main", resolved.Branch)
	require.Equal(t, "inside", resolved.Config.Name)
}

func TestResolveConfigInsideCustomFilename(t *testing.T) {
	dir := newTestRepo(t, "")
	require.NoError(t, os.Rename(filepath.Join(dir, "gdep.yaml"), filepath.Join(dir, "custom.yaml")))

	resolved, err := Resolve(Overrides{LocalRepo: dir, RepoConfig: "custom.yaml", Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, "inside", resolved.Config.Name)
}

func TestResolveStaticConfigWithLocalRepo(t *testing.T) {
	repoDir := newTestRepo(t, "")

	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "static.yaml")
	content := "name: outside\nscript: \"echo hi\"\nlocal_repo: true\nrepo: \"" + repoDir + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	resolved, err := Resolve(Overrides{StaticConfig: cfgPath, Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, repoDir, resolved.Path)
	require.Equal(t, "outside", resolved.Config.Name)
}

func TestResolveBranchFallsBackToDefaultBranch(t *testing.T) {
	repoDir := newTestRepo(t, "https://example.test/repo.git")

	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "static.yaml")
	content := "name: outside\nscript: \"echo hi\"\nlocal_repo: true\nrepo: \"" + repoDir + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	resolved, err := Resolve(Overrides{StaticConfig: cfgPath})
	require.NoError(t, err)
	require.Equal(t, "main", resolved.Branch)
}
