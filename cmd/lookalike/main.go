// Command lookalike serves image similarity search.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/lookalike/internal/adapters/driving/cli"
	"github.com/custodia-labs/lookalike/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(app.Bootstrap)
	cli.SetSettingsLoader(app.LoadSettings)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
