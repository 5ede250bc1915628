package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNoopRecorderNeverPanics(t *testing.T) {
	var r NoopRecorder
	r.IncRunStarted()
	r.IncRunRestarted("script_error")
	r.IncScriptExit(1)
	r.IncDivergence("behind")
	r.ObserveFetchDuration(time.Second, true)
}

func TestPrometheusRecorderNilReceiverIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	p.IncRunStarted()
	p.IncRunRestarted("x")
	p.IncScriptExit(0)
	p.IncDivergence("up_to_date")
	p.ObserveFetchDuration(time.Millisecond, false)
}

func TestPrometheusRecorderRegistersAndRecords(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.IncRunStarted()
	rec.IncRunRestarted("gdep_error")
	rec.IncScriptExit(7)
	rec.IncDivergence("ahead_behind")
	rec.ObserveFetchDuration(50*time.Millisecond, true)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestHTTPHandlerServesWithNilRegistry(t *testing.T) {
	h := HTTPHandler(nil)
	assert.NotNil(t, h)
}
