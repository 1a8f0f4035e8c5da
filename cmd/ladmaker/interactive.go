package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/manash/ladmaker/internal/display"
	"github.com/manash/ladmaker/internal/generator"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/repl"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
)

func newInteractiveCmd(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Run a session from a prompt: open, save, share, reset",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.runInteractive(ctx, cmd, flags)
		},
	}
}

func (app *App) runInteractive(ctx context.Context, cmd *cobra.Command, flags *rootFlags) error {
	injector, logger, err := app.injector(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer injector.Shutdown()

	r := repl.New(&repl.Config{
		In:        cmd.InOrStdin(),
		Out:       app.Out,
		Err:       app.Err,
		Machine:   do.MustInvoke[*session.Machine](injector),
		Shares:    do.MustInvoke[*share.Service](injector),
		Displayer: do.MustInvoke[*display.Displayer](injector),
		Saver:     do.MustInvoke[*image.Saver](injector),
		Estimate:  do.MustInvoke[*generator.Client](injector).EstimatePerImage(),
	})

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
