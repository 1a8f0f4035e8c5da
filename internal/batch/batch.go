// Package batch transforms many photos outside the interactive session, each
// one an independent generation saved straight to disk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/pkg/models"
)

// ErrSkipped marks items never started because the batch stopped early.
var ErrSkipped = errors.New("skipped")

type Generator interface {
	Generate(ctx context.Context, img models.UploadedImage) models.GenerationResult
}

type Saver interface {
	Save(ctx context.Context, ref models.ImageRef, path string) error
}

type Result struct {
	Index    int
	Source   string
	Path     string
	Cost     float64
	Error    error
	Duration time.Duration
}

type Options struct {
	OutputDir    string
	Parallel     int
	StopOnError  bool
	DelayMs      int
	CostPerImage float64
}

type Processor struct {
	gen   Generator
	saver Saver
	blobs *blob.Store
	out   io.Writer
	err   io.Writer
	outMu sync.Mutex
}

// NewProcessor returns a processor. Inline results are released from blobs
// once saved.
func NewProcessor(gen Generator, saver Saver, blobs *blob.Store, out, errOut io.Writer) *Processor {
	return &Processor{
		gen:   gen,
		saver: saver,
		blobs: blobs,
		out:   out,
		err:   errOut,
	}
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = Result{Index: item.Index, Source: item.Path, Error: ErrSkipped}
	}

	if opts.Parallel <= 1 {
		return results, p.processSequential(ctx, items, results, opts)
	}
	return results, p.processParallel(ctx, items, results, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, results []Result, opts *Options) error {
	total := len(items)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		results[i] = p.processItem(ctx, item, opts, i+1, total)

		if results[i].Error != nil && opts.StopOnError {
			return fmt.Errorf("stopped at item %d: %w", item.Index, results[i].Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, results []Result, opts *Options) error {
	total := len(items)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Parallel, len(items)))

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = p.processItem(gctx, item, opts, i+1, total)
			if results[i].Error != nil && opts.StopOnError {
				return fmt.Errorf("batch stopped due to error: %w", results[i].Error)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Source: item.Path,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	p.printf("[%d/%d] Transforming: %s...\n", current, total, filepath.Base(item.Path))

	img, err := image.Load(item.Path)
	if err != nil {
		return fail(err)
	}

	res := p.gen.Generate(ctx, img)
	if !res.OK() {
		return fail(errors.New(res.Reason()))
	}
	if p.blobs != nil && res.Ref().IsBlob() {
		defer p.blobs.Release(res.Ref())
	}

	outputPath := filepath.Join(opts.OutputDir, outputFilename(item.Index, item.Path))
	if err := p.saver.Save(ctx, res.Ref(), outputPath); err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}

	result.Path = outputPath
	result.Cost = opts.CostPerImage
	result.Duration = time.Since(start)

	if result.Cost > 0 {
		p.printf("       Saved: %s ($%.3f, %s)\n", result.Path, result.Cost, result.Duration.Round(time.Millisecond))
	} else {
		p.printf("       Saved: %s (%s)\n", result.Path, result.Duration.Round(time.Millisecond))
	}

	return result
}

func outputFilename(index int, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return fmt.Sprintf("%03d-%s-lad.png", index, sanitizeName(base))
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

func sanitizeName(name string) string {
	sanitized := unsafeChars.ReplaceAllString(name, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 40 {
		sanitized = sanitized[:40]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "photo"
	}

	if windowsReservedNames[sanitized] {
		sanitized = sanitized + "-img"
	}

	return sanitized
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed, skipped int
	var totalCost float64
	var elapsed time.Duration
	var failures []Result

	for _, r := range results {
		switch {
		case errors.Is(r.Error, ErrSkipped):
			skipped++
		case r.Error != nil:
			failed++
			failures = append(failures, r)
		default:
			successful++
			totalCost += r.Cost
		}
		elapsed += r.Duration
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Transformed: %d/%d photos\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	if skipped > 0 {
		fmt.Fprintf(p.out, "  Skipped: %d\n", skipped)
	}
	fmt.Fprintf(p.out, "  Estimated cost: $%.3f\n", totalCost)
	if successful > 0 {
		fmt.Fprintf(p.out, "  Time spent generating: %s\n", humanize.FormatFloat("#,###.#", elapsed.Seconds())+"s")
	}

	if len(failures) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range failures {
			fmt.Fprintf(p.out, "  [%d] %s: %v\n", e.Index, filepath.Base(e.Source), e.Error)
		}
	}
}
