// Package gitrepo implements the Repo Capability: the abstraction boundary
// between the supervisor/updater core and the underlying git library
// (go-git). It exposes open/clone, default-branch inference, fetch,
// divergence classification, merge analysis, fast-forward, and three-way
// merge with conflict detection -- nothing else in the module touches
// go-git directly.
package gitrepo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Repo is an opened local working copy. Its lifetime spans a single
// supervised run; it is owned by the supervisor and borrowed by the updater.
type Repo struct {
	path string
	repo *git.Repository
}

// Path returns the on-disk location of the working copy.
func (r *Repo) Path() string { return r.path }

// FetchHead is the annotated handle returned by Fetch: the tip of the
// fetched branch as seen on refs/remotes/origin/{branch} after the fetch.
type FetchHead struct {
	Branch string
	Hash   string
}

// DivergenceState is the sum type returned by Divergence. The zero value
// (UpToDate) is never constructed directly outside this package; use the
// named constructors/constants below to pattern-match exhaustively.
type DivergenceState struct {
	kind   divergenceKind
	ahead  int
	behind int
}

type divergenceKind int

const (
	kindUpToDate divergenceKind = iota
	kindAhead
	kindBehind
	kindAheadBehind
)

// UpToDate reports both branches point at the same commit.
func (d DivergenceState) UpToDate() bool { return d.kind == kindUpToDate }

// IsAhead reports the local branch carries commits absent from the remote.
func (d DivergenceState) IsAhead() bool { return d.kind == kindAhead }

// IsBehind reports the remote carries commits absent from the local branch.
func (d DivergenceState) IsBehind() bool { return d.kind == kindBehind }

// IsDiverged reports both sides carry commits the other lacks.
func (d DivergenceState) IsDiverged() bool { return d.kind == kindAheadBehind }

// Ahead returns the count of local-only commits (valid when IsAhead or IsDiverged).
func (d DivergenceState) Ahead() int { return d.ahead }

// Behind returns the count of remote-only commits (valid when IsBehind or IsDiverged).
func (d DivergenceState) Behind() int { return d.behind }

func (d DivergenceState) String() string {
	switch d.kind {
	case kindUpToDate:
		return "up-to-date"
	case kindAhead:
		return fmt.Sprintf("ahead(%d)", d.ahead)
	case kindBehind:
		return fmt.Sprintf("behind(%d)", d.behind)
	case kindAheadBehind:
		return fmt.Sprintf("ahead_behind(%d,%d)", d.ahead, d.behind)
	default:
		return "unknown"
	}
}

// NewDivergenceState builds a DivergenceState from ahead/behind counts,
// enforcing the same invariant as Divergence itself. Exported so fakes
// implementing RepoCapability-shaped interfaces (see internal/updater's
// tests) can construct states without reaching into this package's
// internals.
func NewDivergenceState(ahead, behind int) DivergenceState {
	return newDivergence(ahead, behind)
}

func newDivergence(ahead, behind int) DivergenceState {
	switch {
	case ahead == 0 && behind == 0:
		return DivergenceState{kind: kindUpToDate}
	case ahead > 0 && behind == 0:
		return DivergenceState{kind: kindAhead, ahead: ahead}
	case ahead == 0 && behind > 0:
		return DivergenceState{kind: kindBehind, behind: behind}
	default:
		return DivergenceState{kind: kindAheadBehind, ahead: ahead, behind: behind}
	}
}

// MergeAnalysis is the three-way classification of how an incoming commit
// relates to the current HEAD, as computed by Analyze.
type MergeAnalysis int

const (
	// AnalysisUpToDate means HEAD already contains the fetched commit.
	AnalysisUpToDate MergeAnalysis = iota
	// AnalysisFastForward means HEAD is a strict ancestor of the fetched commit.
	AnalysisFastForward
	// AnalysisNormal means both sides carry commits the other lacks; a
	// three-way merge is required.
	AnalysisNormal
)

// MergeOutcome is the result of ThreeWayMerge: either a clean merge commit or
// a set of conflicted paths left in the working directory uncommitted.
type MergeOutcome struct {
	Conflicted bool
	Conflicts  []string
	CommitHash string
}
