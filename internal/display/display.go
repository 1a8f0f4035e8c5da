// Package display shows images inline in terminals that speak the kitty
// graphics protocol.
package display

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/manash/ladmaker/internal/share"
	"github.com/manash/ladmaker/pkg/models"
)

var graphicsPrograms = []string{"kitty", "ghostty", "iterm.app", "wezterm"}

type Fetcher interface {
	Fetch(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

type Displayer struct {
	out     io.Writer
	fetch   Fetcher
	log     *zap.SugaredLogger
	enabled bool
}

// New returns a displayer writing to out. It is enabled only when out is a
// terminal with graphics support.
func New(out io.Writer, fetch Fetcher, log *zap.SugaredLogger) *Displayer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Displayer{
		out:     out,
		fetch:   fetch,
		log:     log.Named("display"),
		enabled: isTerminal(out) && GraphicsSupported(os.Getenv),
	}
}

// Force overrides terminal detection.
func (d *Displayer) Force(enabled bool) *Displayer {
	d.enabled = enabled
	return d
}

func (d *Displayer) Enabled() bool {
	return d.enabled
}

// Show fetches ref and draws it. Non-PNG sources are re-encoded since the
// protocol is driven with PNG payloads.
func (d *Displayer) Show(ctx context.Context, ref models.ImageRef) error {
	if !d.enabled {
		return nil
	}
	data, err := d.fetch.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	return d.draw(data)
}

// Share implements share.Sharer by drawing the composite in the terminal.
func (d *Displayer) Share(ctx context.Context, p share.Payload) error {
	if !d.enabled {
		return share.ErrUnavailable
	}
	fmt.Fprintf(d.out, "%s\n", p.Title)
	if err := d.draw(p.Data); err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s\n", p.Text)
	return nil
}

func (d *Displayer) draw(data []byte) error {
	payload, err := asPNG(data)
	if err != nil {
		return err
	}
	if err := WriteKitty(d.out, payload); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	fmt.Fprintln(d.out)
	return nil
}

func asPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		return data, nil
	}
	img, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// GraphicsSupported reports whether the environment looks like a terminal
// that renders kitty graphics.
func GraphicsSupported(getenv func(string) string) bool {
	if lo.Contains(graphicsPrograms, strings.ToLower(getenv("TERM_PROGRAM"))) {
		return true
	}
	if getenv("KITTY_WINDOW_ID") != "" || getenv("ITERM_SESSION_ID") != "" {
		return true
	}
	t := strings.ToLower(getenv("TERM"))
	return strings.Contains(t, "kitty") || strings.Contains(t, "ghostty")
}
