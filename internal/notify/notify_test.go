package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect("", "gdep.events")
	assert.Error(t, err)
}

func TestConnectUnreachableIsNonFatal(t *testing.T) {
	p, err := Connect("nats://127.0.0.1:1", "gdep.events")
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestPublishWithoutConnectionDoesNotPanic(t *testing.T) {
	p, err := Connect("nats://127.0.0.1:1", "gdep.events")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		p.Publish(Event{Kind: EventRunStarted, RunID: "r1", Name: "test"})
	})
}

func TestPublishOnNilPublisherDoesNotPanic(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.Publish(Event{Kind: EventRunEnded})
	})
}

func TestCloseOnNilPublisherDoesNotPanic(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.Close() })
}
