// Package gdeperrors defines the GdepError taxonomy: a small fixed set of
// concrete error types covering configuration, repository-resolution, and
// update-cycle failures. Each concrete type implements error and carries the
// structured fields a caller needs without string-sniffing; Classify adapts
// any of them (or an arbitrary error) into the ambient
// internal/foundation/errors.ClassifiedError for logging and retry decisions.
package gdeperrors

import (
	"fmt"

	ferrors "github.com/mobskuchen/gdep/internal/foundation/errors"
)

// ConfigFileNotFoundError reports a missing configuration document.
type ConfigFileNotFoundError struct {
	Path string
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

// ScriptFileNotFoundError reports a missing script or cleanup file referenced
// by script_use_file.
type ScriptFileNotFoundError struct {
	Path string
}

func (e *ScriptFileNotFoundError) Error() string {
	return fmt.Sprintf("script file not found: %s", e.Path)
}

// ParsingFailedError reports a YAML syntax error, carrying the parser's own message.
type ParsingFailedError struct {
	Detail string
}

func (e *ParsingFailedError) Error() string {
	return fmt.Sprintf("config parsing failed: %s", e.Detail)
}

// MissingContentError reports a required property absent from the document.
type MissingContentError struct {
	Field string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// LocalRepoNotFoundError reports an open() failure against a local path with
// no remote to fall back on.
type LocalRepoNotFoundError struct {
	Path string
}

func (e *LocalRepoNotFoundError) Error() string {
	return fmt.Sprintf("local repository not found: %s", e.Path)
}

// RemoteRepoNotFoundError reports a clone() failure against a remote URL.
type RemoteRepoNotFoundError struct {
	URL string
	Err error
}

func (e *RemoteRepoNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote repository not reachable: %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("remote repository not reachable: %s", e.URL)
}

func (e *RemoteRepoNotFoundError) Unwrap() error { return e.Err }

// BranchInferFailedError reports default_branch() finding no remote-tracking
// branch ending in /main or /master.
type BranchInferFailedError struct{}

func (e *BranchInferFailedError) Error() string {
	return "could not infer default branch: no remote-tracking branch named .../main or .../master"
}

// GitError is a generic git operation failure carrying a message and an
// implementation-defined code, mirroring the source's GitError(String, ErrorCode).
type GitError struct {
	Message string
	Code    string
	Err     error
}

func (e *GitError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("git error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("git error: %s", e.Message)
}

func (e *GitError) Unwrap() error { return e.Err }

// UpdateErrorRepoAhead is the non-recoverable divergence terminal for the
// Ahead(n) classification: the local branch carries commits the remote lacks.
type UpdateErrorRepoAhead struct {
	N int
}

func (e *UpdateErrorRepoAhead) Error() string {
	return fmt.Sprintf("local repository is %d commit(s) ahead of remote", e.N)
}

// UpdateErrorAheadBehind is the non-recoverable divergence terminal for the
// AheadBehind(a, b) classification.
type UpdateErrorAheadBehind struct {
	Ahead  int
	Behind int
}

func (e *UpdateErrorAheadBehind) Error() string {
	return fmt.Sprintf("repository diverged: %d ahead, %d behind", e.Ahead, e.Behind)
}

// UpdateFailedError reports a fetch or merge failure mid-cycle (not a
// divergence classification, an operational failure while acting on one).
type UpdateFailedError struct {
	Message string
	Code    string
	Err     error
}

func (e *UpdateFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("update failed [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("update failed: %s", e.Message)
}

func (e *UpdateFailedError) Unwrap() error { return e.Err }

// Classify adapts a GdepError (or any error) into the ambient ClassifiedError
// so the rest of the codebase can reason about category/severity/retry
// uniformly regardless of which concrete taxonomy member it started as.
func Classify(err error) *ferrors.ClassifiedError {
	if err == nil {
		return nil
	}
	if c, ok := ferrors.AsClassified(err); ok {
		return c
	}

	switch e := err.(type) {
	case *ConfigFileNotFoundError:
		return ferrors.ConfigError(e.Error()).WithContext("path", e.Path).Build()
	case *ScriptFileNotFoundError:
		return ferrors.ConfigError(e.Error()).WithContext("path", e.Path).Build()
	case *ParsingFailedError:
		return ferrors.ConfigError(e.Error()).WithContext("detail", e.Detail).Build()
	case *MissingContentError:
		return ferrors.ConfigError(e.Error()).WithContext("field", e.Field).Build()
	case *LocalRepoNotFoundError:
		return ferrors.NewError(ferrors.CategoryNotFound, e.Error()).Fatal().WithContext("path", e.Path).Build()
	case *RemoteRepoNotFoundError:
		return ferrors.WrapError(e.Err, ferrors.CategoryNotFound, e.Error()).Fatal().WithContext("url", e.URL).Build()
	case *BranchInferFailedError:
		return ferrors.NewError(ferrors.CategoryGit, e.Error()).Fatal().Build()
	case *GitError:
		return ferrors.WrapError(e.Err, ferrors.CategoryGit, e.Error()).Retryable().WithContext("code", e.Code).Build()
	case *UpdateErrorRepoAhead:
		return ferrors.NewError(ferrors.CategoryGit, e.Error()).Fatal().WithContext("ahead", e.N).Build()
	case *UpdateErrorAheadBehind:
		return ferrors.NewError(ferrors.CategoryGit, e.Error()).Fatal().
			WithContext("ahead", e.Ahead).WithContext("behind", e.Behind).Build()
	case *UpdateFailedError:
		return ferrors.WrapError(e.Err, ferrors.CategoryGit, e.Error()).Retryable().WithContext("code", e.Code).Build()
	default:
		return ferrors.WrapError(err, ferrors.CategoryInternal, err.Error()).Build()
	}
}

// IsRecoverable reports whether the updater's terminal error should be
// treated as a recoverable condition for restart-policy purposes. Every
// member of the taxonomy currently surfaced by the updater's terminal event
// is non-recoverable by construction (UpToDate never produces an error), so
// this simply checks for a nil error; it exists as the single call site the
// supervisor consults, so that evolving the taxonomy never requires touching
// supervisor logic.
func IsRecoverable(err error) bool {
	return err == nil
}
