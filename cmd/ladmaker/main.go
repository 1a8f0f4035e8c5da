package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/manash/ladmaker/internal/config"
	"github.com/manash/ladmaker/internal/display"
	"github.com/manash/ladmaker/internal/generator"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/inject"
	"github.com/manash/ladmaker/internal/keys"
	"github.com/manash/ladmaker/internal/server"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
)

var (
	version = "dev"
	commit  = "none"
)

type App struct {
	Out         io.Writer
	Err         io.Writer
	Getenv      func(string) string
	EnvFiles    []string
	NewProvider generator.ProviderFactory
	// NewLogger overrides the config-driven logger.
	NewLogger func(cfg *config.Config) (*zap.Logger, error)
	Keys      func() (*keys.Store, error)
}

func DefaultApp() *App {
	return &App{
		Out:         os.Stdout,
		Err:         os.Stderr,
		Getenv:      os.Getenv,
		NewProvider: inject.OpenAIProvider,
		NewLogger:   (*config.Config).NewLogger,
		Keys:        keys.NewStore,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCmd(DefaultApp()).Execute()
}

type rootFlags struct {
	cfg    *config.Config
	apiKey string
}

func newRootCmd(app *App) *cobra.Command {
	cfg, err := config.Load(app.EnvFiles...)
	flags := &rootFlags{cfg: cfg}
	if cfg == nil {
		flags.cfg = config.Defaults()
	}

	cmd := &cobra.Command{
		Use:   "ladmaker",
		Short: "Turn a photo into a Lad style cartoon",
		Long: `ladmaker sends a photo to an image editing API with a fixed Lad style
prompt and saves, shows or shares the result.

Examples:
  ladmaker make selfie.jpg
  ladmaker make --share all selfie.png
  ladmaker batch -p 3 *.jpg
  ladmaker interactive
  ladmaker serve --addr :8080
  ladmaker keys set`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return err
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	flags.cfg.BindFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", "", "API key (overrides stored key and "+config.CredentialEnv+")")

	cmd.AddCommand(newMakeCmd(app, flags))
	cmd.AddCommand(newBatchCmd(app, flags))
	cmd.AddCommand(newInteractiveCmd(app, flags))
	cmd.AddCommand(newServeCmd(app, flags))
	cmd.AddCommand(newKeysCmd(app))
	return cmd
}

func (app *App) injector(flags *rootFlags) (*do.Injector, *zap.Logger, error) {
	logger, err := app.NewLogger(flags.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var store *keys.Store
	if app.Keys != nil {
		if store, err = app.Keys(); err != nil {
			logger.Sugar().Warnw("stored keys unavailable", "error", err)
			store = nil
		}
	}

	return inject.Setup(inject.Params{
		Config:      flags.cfg,
		Logger:      logger.Sugar(),
		APIKeyFlag:  flags.apiKey,
		Keys:        store,
		Getenv:      app.Getenv,
		Out:         app.Out,
		NewProvider: app.NewProvider,
	}), logger, nil
}

func newMakeCmd(app *App, flags *rootFlags) *cobra.Command {
	var (
		shareLayout string
		noSave      bool
	)

	cmd := &cobra.Command{
		Use:   "make <image>",
		Short: "Generate a Lad style image from a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.runMake(ctx, flags, args[0], shareLayout, !noSave)
		},
	}

	cmd.Flags().StringVar(&shareLayout, "share", "", "also share a composite: portrait, landscape or all")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the generated image")
	return cmd
}

func (app *App) runMake(ctx context.Context, flags *rootFlags, path, shareLayout string, save bool) error {
	layouts, err := parseShareLayouts(shareLayout)
	if err != nil {
		return err
	}

	img, err := image.Load(path)
	if err != nil {
		return err
	}

	injector, logger, err := app.injector(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer injector.Shutdown()

	machine := do.MustInvoke[*session.Machine](injector)
	shares := do.MustInvoke[*share.Service](injector)
	shower := do.MustInvoke[*display.Displayer](injector)

	fmt.Fprintf(app.Out, "Transforming %s (%s, %s)...\n", img.Name, img.MIMEType, humanize.Bytes(uint64(img.Size)))
	if err := machine.ImageSelected(img); err != nil {
		return err
	}

	st, err := machine.Settled(ctx)
	if err != nil {
		machine.Reset()
		return err
	}
	switch st.Kind {
	case session.KindError:
		return errors.New(st.Message)
	case session.KindUpload:
		return errors.New("session was reset")
	}

	fmt.Fprintf(app.Out, "Generated: %s\n", st.Generated)
	if err := shower.Show(ctx, st.Generated); err != nil {
		logger.Sugar().Warnw("failed to display result", "error", err)
	}

	if save {
		saved, err := shares.Download(ctx, st.Generated)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Saved: %s\n", saved)
	}

	var outcomes []share.Outcome
	switch len(layouts) {
	case 0:
	case 1:
		out, err := shares.Share(ctx, layouts[0], st.Original, st.Generated)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, out)
	default:
		if outcomes, err = shares.ShareAll(ctx, st.Original, st.Generated); err != nil {
			return err
		}
	}
	for _, out := range outcomes {
		if out.Path != "" {
			fmt.Fprintf(app.Out, "Screenshot saved: %s (share it with %s)\n", out.Path, share.Hashtag)
		}
	}
	return nil
}

func parseShareLayouts(s string) ([]share.Layout, error) {
	switch s {
	case "":
		return nil, nil
	case "all":
		return share.Layouts(), nil
	}
	l, err := share.ParseLayout(s)
	if err != nil {
		return nil, err
	}
	return []share.Layout{l}, nil
}

func newServeCmd(app *App, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Lad Maker session API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.runServe(ctx, flags)
		},
	}
	cmd.Flags().StringVar(&flags.cfg.Addr, "addr", flags.cfg.Addr, "listen address")
	return cmd
}

func (app *App) runServe(ctx context.Context, flags *rootFlags) error {
	injector, logger, err := app.injector(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv := do.MustInvoke[*server.Server](injector)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, flags.cfg.Addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return injector.Shutdown()
	})

	fmt.Fprintf(app.Out, "Lad Maker listening on http://%s\n", flags.cfg.Addr)
	return g.Wait()
}
