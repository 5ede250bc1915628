package updater

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/gitrepo"
	"github.com/mobskuchen/gdep/internal/metrics"
)

// fakeRecorder counts ObserveFetchDuration calls so tests can assert the
// updater actually times its Fetch calls, without a real Prometheus registry.
type fakeRecorder struct {
	metrics.NoopRecorder
	fetchObservations int
	lastFetchSuccess  bool
}

func (f *fakeRecorder) ObserveFetchDuration(_ time.Duration, success bool) {
	f.fetchObservations++
	f.lastFetchSuccess = success
}

// fakeRepo simulates a Repo Capability for state-machine testing without git.
type fakeRepo struct {
	divergence gitrepo.DivergenceState
	fetchErr   error
	divErr     error
	analysis   gitrepo.MergeAnalysis
	mergeErr   error
	fetchCount int
}

func (f *fakeRepo) Fetch(branch string) (gitrepo.FetchHead, error) {
	f.fetchCount++
	if f.fetchErr != nil {
		return gitrepo.FetchHead{}, f.fetchErr
	}
	return gitrepo.FetchHead{Branch: branch, Hash: "deadbeef"}, nil
}

func (f *fakeRepo) Divergence(branch string) (gitrepo.DivergenceState, error) {
	if f.divErr != nil {
		return gitrepo.DivergenceState{}, f.divErr
	}
	return f.divergence, nil
}

func (f *fakeRepo) Analyze(branch string, fetched gitrepo.FetchHead) (gitrepo.MergeAnalysis, error) {
	return f.analysis, nil
}

func (f *fakeRepo) FastForward(branch string, fetched gitrepo.FetchHead) error { return f.mergeErr }

func (f *fakeRepo) ThreeWayMerge(branch string, fetched gitrepo.FetchHead) (gitrepo.MergeOutcome, error) {
	if f.mergeErr != nil {
		return gitrepo.MergeOutcome{}, f.mergeErr
	}
	return gitrepo.MergeOutcome{CommitHash: "merged"}, nil
}

func (f *fakeRepo) RemoteURL() string { return "" } // disables the RemoteHead optimization in tests

// drainHeartbeat reads and discards the non-terminal heartbeat event every
// iterate() call sends first, returning the next (terminal) event.
func drainHeartbeat(t *testing.T, u *Updater) Event {
	t.Helper()
	<-u.events
	return <-u.events
}

func TestUpdaterStopFlagSetEmitsTerminalImmediatelyWithoutFetch(t *testing.T) {
	stop := &atomic.Bool{}
	stop.Store(true)
	repo := &fakeRepo{}
	u := New(repo, "main", time.Millisecond, stop)

	done := make(chan Event, 1)
	go func() { done <- (<-u.events) }()
	terminal := u.iterate()

	assert.True(t, terminal)
	assert.Equal(t, 0, repo.fetchCount)
	evt := <-done
	assert.True(t, evt.Terminal)
}

func TestUpdaterUpToDateIsNotTerminalUntilStopFlag(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{divergence: gitrepo.NewDivergenceState(0, 0)}
	u := New(repo, "main", time.Millisecond, stop)

	done := make(chan struct{})
	go func() { <-u.events; close(done) }() // drain heartbeat
	terminal := u.iterate()
	<-done

	assert.False(t, terminal)
	assert.Equal(t, 1, repo.fetchCount)

	stop.Store(true)
	done2 := make(chan Event, 1)
	go func() { done2 <- (<-u.events) }()
	terminal = u.iterate()
	assert.True(t, terminal)
	assert.True(t, (<-done2).Terminal)
}

func TestUpdaterFetchErrorIsTerminal(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{fetchErr: errors.New("network down")}
	u := New(repo, "main", time.Millisecond, stop)

	evtCh := make(chan Event, 1)
	go func() { drainHeartbeat(t, u); close(evtCh) }()

	terminal := u.iterate()
	<-evtCh
	assert.True(t, terminal)
}

func TestUpdaterAheadEmitsTerminalRepoAheadError(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{divergence: gitrepo.NewDivergenceState(2, 0)}
	u := New(repo, "main", time.Millisecond, stop)

	resultCh := make(chan Event, 1)
	go func() { resultCh <- drainHeartbeat(t, u) }()
	terminal := u.iterate()
	got := <-resultCh

	assert.True(t, terminal)
	require.True(t, got.Terminal)
	var aheadErr *gdeperrors.UpdateErrorRepoAhead
	require.ErrorAs(t, got.Err, &aheadErr)
	assert.Equal(t, 2, aheadErr.N)
}

func TestUpdaterDivergedEmitsAheadBehindError(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{divergence: gitrepo.NewDivergenceState(2, 3)}
	u := New(repo, "main", time.Millisecond, stop)

	resultCh := make(chan Event, 1)
	go func() { resultCh <- drainHeartbeat(t, u) }()
	u.iterate()
	got := <-resultCh

	require.True(t, got.Terminal)
	var divErr *gdeperrors.UpdateErrorAheadBehind
	require.ErrorAs(t, got.Err, &divErr)
	assert.Equal(t, 2, divErr.Ahead)
	assert.Equal(t, 3, divErr.Behind)
}

func TestUpdaterBehindAttemptsFastForwardAndTerminatesOk(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{
		divergence: gitrepo.NewDivergenceState(0, 1),
		analysis:   gitrepo.AnalysisFastForward,
	}
	u := New(repo, "main", time.Millisecond, stop)

	resultCh := make(chan Event, 1)
	go func() { resultCh <- drainHeartbeat(t, u) }()
	terminal := u.iterate()
	got := <-resultCh

	assert.True(t, terminal)
	assert.True(t, got.Terminal)
	assert.NoError(t, got.Err)
	assert.GreaterOrEqual(t, repo.fetchCount, 2) // classify fetch + pre-merge fetch
}

func TestUpdaterObservesFetchDurationOnSuccessAndFailure(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{divergence: gitrepo.NewDivergenceState(0, 0)}
	rec := &fakeRecorder{}
	u := New(repo, "main", time.Millisecond, stop).WithHooks(rec, nil, "run-1", "svc")

	go func() { <-u.events }() // drain heartbeat
	u.iterate()

	require.Equal(t, 1, rec.fetchObservations)
	assert.True(t, rec.lastFetchSuccess)

	stop2 := &atomic.Bool{}
	repo2 := &fakeRepo{fetchErr: errors.New("network down")}
	rec2 := &fakeRecorder{}
	u2 := New(repo2, "main", time.Millisecond, stop2).WithHooks(rec2, nil, "run-2", "svc")

	go func() { drainHeartbeat(t, u2) }()
	u2.iterate()

	require.Equal(t, 1, rec2.fetchObservations)
	assert.False(t, rec2.lastFetchSuccess)
}

func TestUpdaterWithHooksNilNotifierDoesNotPanic(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{divergence: gitrepo.NewDivergenceState(0, 1), analysis: gitrepo.AnalysisFastForward}
	u := New(repo, "main", time.Millisecond, stop).WithHooks(nil, nil, "run-3", "svc")

	assert.NotPanics(t, func() {
		go func() { drainHeartbeat(t, u) }()
		u.iterate()
	})
}

func TestUpdaterBehindMergeFailureIsTerminalError(t *testing.T) {
	stop := &atomic.Bool{}
	repo := &fakeRepo{
		divergence: gitrepo.NewDivergenceState(0, 1),
		analysis:   gitrepo.AnalysisNormal,
		mergeErr:   errors.New("merge failed"),
	}
	u := New(repo, "main", time.Millisecond, stop)

	resultCh := make(chan Event, 1)
	go func() { resultCh <- drainHeartbeat(t, u) }()
	u.iterate()
	got := <-resultCh

	require.True(t, got.Terminal)
	require.Error(t, got.Err)
}
