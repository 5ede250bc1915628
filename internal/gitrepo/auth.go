package gitrepo

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// defaultAuth resolves "whatever default credentials the git capability
// provides" (per spec.md's Non-goal of no per-repo configurable auth): an
// SSH key at the conventional default path for git@/ssh:// URLs, or a bearer
// token from GDEP_GIT_TOKEN as HTTP basic auth for https:// URLs. Absence of
// either is not an error -- it simply means the transport's own default
// (anonymous, or an ssh-agent already running) is used.
func defaultAuth(url string) transport.AuthMethod {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if token := os.Getenv("GDEP_GIT_TOKEN"); token != "" {
			return &http.BasicAuth{Username: "gdep", Password: token}
		}
		return nil
	case strings.HasPrefix(url, "git@"), strings.HasPrefix(url, "ssh://"):
		return defaultSSHAuth()
	default:
		return nil
	}
}

// defaultSSHAuth tries GDEP_SSH_KEY, then the conventional ~/.ssh/id_ed25519
// / id_rsa locations, falling back to nil (letting go-git's ssh-agent
// fallback take over) when none are readable.
func defaultSSHAuth() transport.AuthMethod {
	if keyPath := os.Getenv("GDEP_SSH_KEY"); keyPath != "" {
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
		slog.Warn("GDEP_SSH_KEY set but unreadable, falling back to agent", "path", keyPath)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"id_ed25519", "id_rsa"} {
		candidate := filepath.Join(home, ".ssh", name)
		if _, statErr := os.Stat(candidate); statErr != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", candidate, ""); err == nil {
			return auth
		}
	}
	return nil
}
