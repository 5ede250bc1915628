// Package logfields centralizes the field names used in gdep's structured
// logging so call sites never hand-roll slog.String("repo", ...) with
// inconsistent keys across packages.
package logfields

import "log/slog"

// Canonical field names.
const (
	KeyName       = "name"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyBranch     = "branch"
	KeyRunID      = "run_id"
	KeyExitCode   = "exit_code"
	KeyDivergence = "divergence"
	KeyError      = "error"
	KeyRestart    = "restart"
)

// Name returns a slog attr for a config/repository name.
func Name(value string) slog.Attr { return slog.String(KeyName, value) }

// Path returns a slog attr for a filesystem path.
func Path(value string) slog.Attr { return slog.String(KeyPath, value) }

// URL returns a slog attr for a remote URL.
func URL(value string) slog.Attr { return slog.String(KeyURL, value) }

// Branch returns a slog attr for a branch name.
func Branch(value string) slog.Attr { return slog.String(KeyBranch, value) }

// RunID returns a slog attr for the UUID correlating one supervised run
// across logs, metrics, and notifications.
func RunID(value string) slog.Attr { return slog.String(KeyRunID, value) }

// ExitCode returns a slog attr for a child process exit code.
func ExitCode(value int) slog.Attr { return slog.Int(KeyExitCode, value) }

// Divergence returns a slog attr describing a divergence classification.
func Divergence(value string) slog.Attr { return slog.String(KeyDivergence, value) }

// Error returns a slog attr wrapping an error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Restart returns a slog attr indicating whether a run will be restarted.
func Restart(value bool) slog.Attr { return slog.Bool(KeyRestart, value) }
