// Package metrics provides optional Prometheus observability for supervised
// runs: counts of runs/restarts, script exit codes, divergence states
// observed, and fetch durations. Off by default; a NoopRecorder is used
// when no --metrics-addr is configured, so call sites never nil-check.
package metrics

import "time"

// Recorder defines the observability hooks the supervisor and updater call.
// Implementations must be safe to call on a nil receiver so injection stays
// optional.
type Recorder interface {
	IncRunStarted()
	IncRunRestarted(reason string)
	IncScriptExit(code int)
	IncDivergence(state string)
	ObserveFetchDuration(d time.Duration, success bool)
}

// NoopRecorder is the default Recorder when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) IncRunStarted()                               {}
func (NoopRecorder) IncRunRestarted(string)                        {}
func (NoopRecorder) IncScriptExit(int)                             {}
func (NoopRecorder) IncDivergence(string)                          {}
func (NoopRecorder) ObserveFetchDuration(time.Duration, bool)      {}
