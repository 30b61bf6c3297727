// Package app wires the command line surface of the regulation QA
// server: flag groups, config loading and the run loop.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/regqa/cmd/regqa/app/options"
	"github.com/kart-io/regqa/pkg/app"
)

// Name is the name of the application.
const Name = "regqa"

const commandDesc = `Regulation QA Service

Answers natural-language questions about energy project regulations,
scoped by province, asset type and document class.

This server provides:
  - Cited answers quoting regulation text verbatim
  - Government-domain allowlist filtering for all sources
  - Vector similarity search over indexed regulation chunks (Milvus)
  - Web question answering and document discovery fallbacks`

// NewApp assembles the regqa command from its option groups and the
// shared application scaffolding.
func NewApp() *app.App {
	opts := options.NewServerOptions()

	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)
}

// run loads the configuration, builds the server and blocks until the
// signal context is cancelled or the server fails.
func run(opts *options.ServerOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Run(ctx)
}

// signalContext cancels on SIGINT or SIGTERM. A second signal skips the
// graceful drain and exits immediately.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	return ctx, cancel
}
