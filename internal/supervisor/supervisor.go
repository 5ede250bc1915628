// Package supervisor implements the Supervisor (C6): spawns the configured
// script as a child process, spawns the Updater alongside it, arbitrates
// between child exit and updater events, and applies the restart policy.
package supervisor

import (
	"context"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"log/slog"

	"github.com/mobskuchen/gdep/internal/config"
	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/metrics"
	"github.com/mobskuchen/gdep/internal/notify"
	"github.com/mobskuchen/gdep/internal/runhistory"
	"github.com/mobskuchen/gdep/internal/updater"
)

// Hooks bundles the optional, off-by-default observability integrations
// (SPEC_FULL's additive behavior). Every field is nil-safe: a nil Metrics
// behaves like metrics.NoopRecorder, a nil Notifier or History is simply
// skipped. None of these participate in restart-policy decisions.
type Hooks struct {
	Metrics  metrics.Recorder
	Notifier *notify.Publisher
	History  *runhistory.Store
}

func (h Hooks) recorder() metrics.Recorder {
	if h.Metrics == nil {
		return metrics.NoopRecorder{}
	}
	return h.Metrics
}

// RunResult is returned by Run once the final supervised run completes
// (re_run exhausted or a stop condition per spec.md S:4.5 step 7).
type RunResult struct {
	RunCount     int
	LastExitCode int
	LastErr      error
}

// Run executes the supervised-run loop for repo path/branch under cfg,
// recursing (as an explicit loop, per spec.md S:9's note that a loop is an
// equivalent implementation to source recursion) while the restart policy
// says to continue.
func Run(ctx context.Context, cfg *config.Config, repoPath, branch string, repo updater.RepoCapability, hooks Hooks) RunResult {
	var result RunResult

	for {
		result.RunCount++
		exitCode, updaterErr := runOnce(ctx, cfg, repoPath, branch, repo, hooks)
		result.LastExitCode = exitCode
		result.LastErr = updaterErr

		if ctx.Err() != nil {
			return result
		}

		doRerun := decideRerun(cfg, exitCode, updaterErr)

		if !doRerun {
			return result
		}

		reason := "re_run"
		switch {
		case exitCode != 0:
			reason = "script_error"
		case updaterErr != nil:
			reason = "gdep_error"
		}
		hooks.recorder().IncRunRestarted(reason)
		slog.Info("restarting supervised run", logfields.Name(cfg.Name), slog.String("reason", reason))
	}
}

// decideRerun implements spec.md S:4.5 step 7's restart-policy calculation.
func decideRerun(cfg *config.Config, exitCode int, updaterErr error) bool {
	doRerun := cfg.ReRun
	if exitCode != 0 && cfg.ExitOnScriptError {
		doRerun = false
	}
	if !gdeperrors.IsRecoverable(updaterErr) && cfg.ExitOnGdepError {
		doRerun = false
	}
	return doRerun
}

// runOnce implements spec.md S:4.5 steps 1-6 for a single supervised run.
func runOnce(ctx context.Context, cfg *config.Config, repoPath, branch string, repo updater.RepoCapability, hooks Hooks) (exitCode int, updaterErr error) {
	runID := uuid.NewString()
	startedAt := time.Now()
	log := slog.With(logfields.RunID(runID), logfields.Name(cfg.Name))

	hooks.recorder().IncRunStarted()
	hooks.Notifier.Publish(notify.Event{Kind: notify.EventRunStarted, RunID: runID, Name: cfg.Name})

	cmd := exec.CommandContext(ctx, "sh", "-c", cfg.Script)
	cmd.Dir = repoPath
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		log.Error("failed to spawn script", logfields.Error(err))
		return -1, nil
	}

	var stopFlag atomic.Bool
	up := updater.New(repo, branch, cfg.PollInterval, &stopFlag).WithHooks(hooks.recorder(), hooks.Notifier, runID, cfg.Name)
	go up.Run()

	childDone := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(childDone)
	}()

loop:
	for {
		select {
		case evt, ok := <-up.Events():
			if !ok {
				break loop
			}
			if evt.Terminal {
				updaterErr = evt.Err
				if evt.Err != nil {
					hooks.recorder().IncDivergence(classifyDivergenceLabel(evt.Err))
				}
				break loop
			}
		case <-childDone:
			break loop
		}
	}

	stopFlag.Store(true)
	up.WakeNow()

	select {
	case <-childDone:
	default:
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-childDone
	}

	for range up.Events() {
		// drain until the updater goroutine closes its channel (joined).
	}

	exitCode = exitCodeOf(cmd)
	log.Info("supervised run ended", logfields.ExitCode(exitCode), logfields.Error(updaterErr))
	hooks.recorder().IncScriptExit(exitCode)
	hooks.Notifier.Publish(notify.Event{Kind: notify.EventRunEnded, RunID: runID, Name: cfg.Name})

	if hooks.History != nil {
		reason := ""
		if updaterErr != nil {
			reason = "gdep_error"
		} else if exitCode != 0 {
			reason = "script_error"
		}
		outcome := "up_to_date"
		if updaterErr != nil {
			outcome = updaterErr.Error()
		}
		_ = hooks.History.RecordRun(ctx, runhistory.Run{
			RunID:         runID,
			Name:          cfg.Name,
			StartedAt:     startedAt,
			EndedAt:       time.Now(),
			ExitCode:      exitCode,
			RestartReason: reason,
			UpdateOutcome: outcome,
		})
	}

	return exitCode, updaterErr
}

func exitCodeOf(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func classifyDivergenceLabel(err error) string {
	switch err.(type) {
	case *gdeperrors.UpdateErrorRepoAhead:
		return "ahead"
	case *gdeperrors.UpdateErrorAheadBehind:
		return "ahead_behind"
	default:
		return "error"
	}
}
