package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/manash/ladmaker/internal/batch"
	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/generator"
	"github.com/manash/ladmaker/internal/image"
)

type batchFlags struct {
	list        string
	parallel    int
	stopOnError bool
	delayMs     int
}

func newBatchCmd(app *App, flags *rootFlags) *cobra.Command {
	bf := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch [photos...]",
		Short: "Transform several photos and save each result",
		Long: `Transform every photo given as an argument or listed in a file.

The list is a .txt file with one path per line (# starts a comment) or a
.json array of paths. Results are written to the output directory as
NNN-<name>-lad.png.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.runBatch(ctx, flags, bf, args)
		},
	}

	cmd.Flags().StringVarP(&bf.list, "file", "f", "", "file listing photos (.txt or .json)")
	cmd.Flags().IntVarP(&bf.parallel, "parallel", "p", 1, "number of photos processed at once")
	cmd.Flags().BoolVar(&bf.stopOnError, "stop-on-error", false, "stop at the first failure")
	cmd.Flags().IntVar(&bf.delayMs, "delay", 0, "milliseconds to wait between sequential requests")
	return cmd
}

func (app *App) runBatch(ctx context.Context, flags *rootFlags, bf *batchFlags, args []string) error {
	var (
		items []batch.Item
		err   error
	)
	switch {
	case bf.list != "" && len(args) > 0:
		return fmt.Errorf("give photos as arguments or with --file, not both")
	case bf.list != "":
		items, err = batch.ParseFile(bf.list)
	default:
		items, err = batch.FromPaths(args)
	}
	if err != nil {
		return err
	}
	if bf.parallel < 1 || bf.parallel > 10 {
		return fmt.Errorf("parallel must be between 1 and 10, got %d", bf.parallel)
	}

	injector, logger, err := app.injector(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer injector.Shutdown()

	client := do.MustInvoke[*generator.Client](injector)
	proc := batch.NewProcessor(
		client,
		do.MustInvoke[*image.Saver](injector),
		do.MustInvoke[*blob.Store](injector),
		app.Out,
		app.Err,
	)

	results, err := proc.Process(ctx, items, &batch.Options{
		OutputDir:    flags.cfg.OutputDir,
		Parallel:     bf.parallel,
		StopOnError:  bf.stopOnError,
		DelayMs:      bf.delayMs,
		CostPerImage: client.EstimatePerImage().PerImage,
	})
	proc.PrintSummary(results)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("%d of %d photos failed", countFailed(results), len(results))
		}
	}
	return nil
}

func countFailed(results []batch.Result) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}
