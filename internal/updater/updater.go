// Package updater implements the Updater (C5): a polling state machine that
// fetches a tracked branch, classifies its divergence from the local
// checkout, and fast-forwards or three-way-merges as needed, reporting its
// outcome on a channel the supervisor reads.
package updater

import (
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/gitrepo"
	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/metrics"
	"github.com/mobskuchen/gdep/internal/notify"
	"log/slog"
)

// Event is sent from the updater to the supervisor. A non-terminal event is
// a heartbeat; the terminal event is always the last one on the channel.
type Event struct {
	Err      error
	Terminal bool
}

// RepoCapability is the subset of *gitrepo.Repo the updater drives. Pinning
// it as an interface (per spec.md S:9's "test against a fake repo" design
// note) lets the state machine be exercised with a fake that simulates
// divergence states without touching real git.
type RepoCapability interface {
	Fetch(branch string) (gitrepo.FetchHead, error)
	Divergence(branch string) (gitrepo.DivergenceState, error)
	Analyze(branch string, fetched gitrepo.FetchHead) (gitrepo.MergeAnalysis, error)
	FastForward(branch string, fetched gitrepo.FetchHead) error
	ThreeWayMerge(branch string, fetched gitrepo.FetchHead) (gitrepo.MergeOutcome, error)
	RemoteURL() string
}

// Updater holds a borrowed Repo and drives its poll loop.
type Updater struct {
	repo         RepoCapability
	branch       string
	pollInterval time.Duration
	stopFlag     *atomic.Bool
	events       chan Event
	wake         chan struct{}
	lastRemote   string

	metricsRecorder metrics.Recorder
	notifier        *notify.Publisher
	runID           string
	name            string
}

// New constructs an Updater over repo/branch. stopFlag is shared with the
// supervisor: single writer (supervisor), single reader (updater).
func New(repo RepoCapability, branch string, pollInterval time.Duration, stopFlag *atomic.Bool) *Updater {
	return &Updater{
		repo:         repo,
		branch:       branch,
		pollInterval: pollInterval,
		stopFlag:     stopFlag,
		events:       make(chan Event, 2),
		wake:         make(chan struct{}, 1),
	}
}

// WithHooks attaches the optional, off-by-default observability hooks
// (SPEC_FULL's domain stack): recorder gets fetch-duration/divergence
// metrics, notifier gets EventDivergenceFound/EventUpdateApplied lifecycle
// events tagged with runID/name. Safe to skip entirely -- a nil recorder
// behaves like metrics.NoopRecorder and a nil notifier is a silent no-op.
// Returns u for chaining at the call site.
func (u *Updater) WithHooks(recorder metrics.Recorder, notifier *notify.Publisher, runID, name string) *Updater {
	u.metricsRecorder = recorder
	u.notifier = notifier
	u.runID = runID
	u.name = name
	return u
}

func (u *Updater) recorder() metrics.Recorder {
	if u.metricsRecorder == nil {
		return metrics.NoopRecorder{}
	}
	return u.metricsRecorder
}

func (u *Updater) publish(kind notify.EventKind, detail string) {
	u.notifier.Publish(notify.Event{Kind: kind, RunID: u.runID, Name: u.name, Detail: detail})
}

// Events returns the channel the supervisor reads updater outcomes from.
func (u *Updater) Events() <-chan Event { return u.events }

// WakeNow nudges a blocked poll loop into its next iteration immediately,
// instead of waiting out the remainder of PollInterval. The supervisor
// calls this right after setting stop_flag so shutdown is prompt rather
// than bounded by the poll interval.
func (u *Updater) WakeNow() {
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// Run drives the poll loop until a terminal event fires, then closes the
// events channel. Intended to be started in its own goroutine by the
// supervisor (SPEC_FULL's "Spawn the Updater" step).
//
// Ticks are driven by a gocron DurationJob rather than a bare time.Sleep,
// firing every PollInterval on a fixed cadence; the first iteration runs
// immediately rather than waiting a full interval. At most one tick is held
// while an iteration runs, so after a slow iteration the next one starts at
// once; the gap between iterations is not guaranteed to be PollInterval.
func (u *Updater) Run() {
	defer close(u.events)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		u.events <- Event{Err: err, Terminal: true}
		return
	}
	defer func() { _ = scheduler.Shutdown() }()

	tick := make(chan struct{}, 1)
	tick <- struct{}{}

	_, err = scheduler.NewJob(
		gocron.DurationJob(u.pollInterval),
		gocron.NewTask(func() {
			select {
			case tick <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		u.events <- Event{Err: err, Terminal: true}
		return
	}
	scheduler.Start()

	for {
		select {
		case <-tick:
		case <-u.wake:
		}
		if u.iterate() {
			return
		}
	}
}

// iterate runs one FETCH_AND_CLASSIFY/ATTEMPT_MERGE cycle and reports
// whether it was terminal, per spec.md S:4.4's state machine.
func (u *Updater) iterate() (terminal bool) {
	if u.stopFlag.Load() {
		u.events <- Event{Terminal: true}
		return true
	}
	u.events <- Event{}

	if skip := u.skipFetchIfUnchanged(); !skip {
		start := time.Now()
		_, err := u.repo.Fetch(u.branch)
		u.recorder().ObserveFetchDuration(time.Since(start), err == nil)
		if err != nil {
			u.events <- Event{Err: err, Terminal: true}
			return true
		}
	}

	div, err := u.repo.Divergence(u.branch)
	if err != nil {
		u.events <- Event{Err: err, Terminal: true}
		return true
	}
	slog.Debug("divergence classified", logfields.Branch(u.branch), logfields.Divergence(div.String()))

	switch {
	case div.UpToDate():
		if u.stopFlag.Load() {
			u.events <- Event{Terminal: true}
			return true
		}
		return false
	case div.IsAhead():
		u.publish(notify.EventDivergenceFound, div.String())
		u.events <- Event{Err: &gdeperrors.UpdateErrorRepoAhead{N: div.Ahead()}, Terminal: true}
		return true
	case div.IsDiverged():
		u.publish(notify.EventDivergenceFound, div.String())
		u.events <- Event{Err: &gdeperrors.UpdateErrorAheadBehind{Ahead: div.Ahead(), Behind: div.Behind()}, Terminal: true}
		return true
	default: // IsBehind
		u.publish(notify.EventDivergenceFound, div.String())
		if err := u.attemptMerge(); err != nil {
			u.events <- Event{Err: err, Terminal: true}
			return true
		}
		u.events <- Event{Terminal: true}
		return true
	}
}

// attemptMerge fetches fresh FETCH_HEAD, runs merge analysis, and applies a
// fast-forward or three-way merge. Conflicts are a normal completion, not an
// error (spec.md S:7: "Merge conflicts are not errors").
func (u *Updater) attemptMerge() error {
	start := time.Now()
	fetched, err := u.repo.Fetch(u.branch)
	u.recorder().ObserveFetchDuration(time.Since(start), err == nil)
	if err != nil {
		return &gdeperrors.UpdateFailedError{Message: "fetch before merge failed", Err: err}
	}

	analysis, err := u.repo.Analyze(u.branch, fetched)
	if err != nil {
		return &gdeperrors.UpdateFailedError{Message: "merge analysis failed", Err: err}
	}

	switch analysis {
	case gitrepo.AnalysisUpToDate:
		return nil
	case gitrepo.AnalysisFastForward:
		if err := u.repo.FastForward(u.branch, fetched); err != nil {
			return err
		}
		u.publish(notify.EventUpdateApplied, "fast-forward to "+fetched.Hash)
	default:
		outcome, err := u.repo.ThreeWayMerge(u.branch, fetched)
		if err != nil {
			return err
		}
		if outcome.Conflicted {
			slog.Warn("merge produced conflicts, working tree left uncommitted",
				logfields.Branch(u.branch), slog.Any("conflicts", outcome.Conflicts))
		}
		u.publish(notify.EventUpdateApplied, "three-way merge to "+fetched.Hash)
	}
	return nil
}

// skipFetchIfUnchanged performs the RemoteHead optimization: when the
// remote's tip sha matches what was observed on the previous iteration, the
// full Fetch is skipped. It never changes the Divergence State taxonomy --
// if the check itself fails, it simply falls back to a real fetch.
func (u *Updater) skipFetchIfUnchanged() bool {
	url := u.repo.RemoteURL()
	if url == "" {
		return false
	}
	head, err := gitrepo.RemoteHead(url, u.branch)
	if err != nil {
		return false
	}
	skip := u.lastRemote != "" && u.lastRemote == head
	u.lastRemote = head
	return skip
}
