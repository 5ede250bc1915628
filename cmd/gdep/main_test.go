package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(t *testing.T, args ...string) *CLI {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("gdep"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return cli
}

func TestCLIParsesShortFlags(t *testing.T) {
	cli := parseArgs(t, "-r", "https://example.com/repo.git", "-b", "dev", "-d")
	assert.Equal(t, "https://example.com/repo.git", cli.RemoteRepo)
	assert.Equal(t, "dev", cli.Branch)
	assert.True(t, cli.Debug)
}

func TestCLIParsesConfigInsideFlag(t *testing.T) {
	cli := parseArgs(t, "-l", "/srv/repo", "-i")
	assert.Equal(t, "/srv/repo", cli.LocalRepo)
	assert.True(t, cli.ConfigInside)
}

func TestCLIParsesStaticAndRepoConfigTogether(t *testing.T) {
	cli := parseArgs(t, "-c", "inner.yaml", "-s", "/etc/gdep/static.yaml")
	assert.Equal(t, "inner.yaml", cli.RepoConfig)
	assert.Equal(t, "/etc/gdep/static.yaml", cli.StaticConfig)
}

func TestCLIObservabilityFlagsDefaultEmpty(t *testing.T) {
	cli := parseArgs(t)
	assert.Empty(t, cli.MetricsAddr)
	assert.Empty(t, cli.NATSURL)
	assert.Empty(t, cli.HistoryDB)
}

func TestCLIObservabilityFlagsParse(t *testing.T) {
	cli := parseArgs(t, "--metrics-addr", ":9090", "--nats-url", "nats://localhost:4222", "--history-db", "history.db")
	assert.Equal(t, ":9090", cli.MetricsAddr)
	assert.Equal(t, "nats://localhost:4222", cli.NATSURL)
	assert.Equal(t, "history.db", cli.HistoryDB)
}
