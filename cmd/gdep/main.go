// Command gdep polls a git repository for upstream changes and supervises a
// script across each update, restarting it according to the resolved config's
// restart policy.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "github.com/mobskuchen/gdep/internal/foundation/errors"
	"github.com/mobskuchen/gdep/internal/gdeperrors"
	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/metrics"
	"github.com/mobskuchen/gdep/internal/notify"
	"github.com/mobskuchen/gdep/internal/resolver"
	"github.com/mobskuchen/gdep/internal/runhistory"
	"github.com/mobskuchen/gdep/internal/supervisor"
)

// version is set at build time with: -ldflags "-X main.version=1.0.0"
var version = "dev"

// CLI mirrors the flag table in spec.md S:6 exactly (long/short names,
// semantics, default paths), plus SPEC_FULL's additive, off-by-default
// observability flags.
type CLI struct {
	RemoteRepo   string `short:"r" name:"remote-repo" help:"Remote to clone"`
	LocalRepo    string `short:"l" name:"local-repo" help:"Local repo path (or clone destination)"`
	RepoConfig   string `short:"c" name:"repo-config" help:"Config relative to repo root"`
	StaticConfig string `short:"s" name:"static-config" help:"Config outside repo (overrides --repo-config)"`
	Branch       string `short:"b" name:"branch" help:"Override inferred branch"`
	ConfigInside bool   `short:"i" name:"config-inside" help:"Config lives inside the repo (default name gdep.yaml)"`
	Debug        bool   `short:"d" name:"debug" help:"Verbose diagnostics"`
	Version      kong.VersionFlag `short:"v" name:"version" help:"Print version and exit"`

	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090); disabled when empty"`
	NATSURL     string `name:"nats-url" help:"Publish lifecycle events to this NATS server; disabled when empty"`
	HistoryDB   string `name:"history-db" help:"Record run history to this sqlite file; disabled when empty"`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("gdep"),
		kong.Description("gdep polls a tracked branch and supervises a script across each update."),
		kong.Vars{"version": version},
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	errAdapter := ferrors.NewCLIErrorAdapter(cli.Debug, logger)

	if err := run(cli); err != nil {
		errAdapter.HandleError(gdeperrors.Classify(err))
	}
}

func run(cli *CLI) error {
	resolved, err := resolver.Resolve(resolver.Overrides{
		RemoteRepo:   cli.RemoteRepo,
		LocalRepo:    cli.LocalRepo,
		RepoConfig:   cli.RepoConfig,
		StaticConfig: cli.StaticConfig,
		Branch:       cli.Branch,
		ConfigInside: cli.ConfigInside,
	})
	if err != nil {
		return fmt.Errorf("resolve repo/config: %w", err)
	}

	slog.Info("resolved supervised run",
		logfields.Name(resolved.Config.Name), logfields.Path(resolved.Path), logfields.Branch(resolved.Branch))

	hooks, cleanup, err := buildHooks(cli)
	if err != nil {
		return fmt.Errorf("initialize observability hooks: %w", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := supervisor.Run(ctx, resolved.Config, resolved.Path, resolved.Branch, resolved.Repo, hooks)

	slog.Info("supervised run loop ended",
		logfields.Name(resolved.Config.Name), slog.Int("run_count", result.RunCount), logfields.ExitCode(result.LastExitCode))

	if result.LastErr != nil {
		return result.LastErr
	}
	if result.LastExitCode != 0 {
		return fmt.Errorf("script exited with code %d", result.LastExitCode)
	}
	return nil
}

// buildHooks wires the optional observability stack named by SPEC_FULL's
// domain section, each gated behind its own flag and off by default. The
// returned cleanup func is always safe to call.
func buildHooks(cli *CLI) (supervisor.Hooks, func(), error) {
	var hooks supervisor.Hooks
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cli.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder := metrics.NewPrometheusRecorder(reg)
		hooks.Metrics = recorder

		srv := &http.Server{Addr: cli.MetricsAddr, Handler: metrics.HTTPHandler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", logfields.Error(err))
			}
		}()
		closers = append(closers, func() { _ = srv.Close() })
	}

	if cli.NATSURL != "" {
		pub, err := notify.Connect(cli.NATSURL, "gdep.events")
		if err != nil {
			return hooks, cleanup, err
		}
		hooks.Notifier = pub
		closers = append(closers, pub.Close)
	}

	if cli.HistoryDB != "" {
		store, err := runhistory.Open(cli.HistoryDB)
		if err != nil {
			return hooks, cleanup, err
		}
		hooks.History = store
		closers = append(closers, func() { _ = store.Close() })
	}

	return hooks, cleanup, nil
}
