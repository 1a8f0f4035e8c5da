package display

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/share"
	"github.com/manash/ladmaker/pkg/models"
)

const pngMagic = "\x89PNG\r\n\x1a\n"

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNew_DisabledForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, image.NewSaver(nil), nil)
	if d.Enabled() {
		t.Error("Enabled() = true for a bytes.Buffer")
	}
	if err := d.Show(context.Background(), "blob:missing"); err != nil {
		t.Errorf("Show() error = %v, want silent no-op", err)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled displayer wrote %q", buf.String())
	}
}

func TestDisplayer_Show(t *testing.T) {
	blobs := blob.NewStore()
	ref := blobs.Put(models.MIMEJPEG, jpegBytes(t))

	var buf bytes.Buffer
	d := New(&buf, image.NewSaver(blobs), nil).Force(true)

	if err := d.Show(context.Background(), ref); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), apcStart) {
		t.Error("output should start with a kitty escape")
	}
}

func TestDisplayer_Show_MissingBlob(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, image.NewSaver(blob.NewStore()), nil).Force(true)

	if err := d.Show(context.Background(), "blob:gone"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Show() error = %v, want ErrNotFound", err)
	}
}

func TestAsPNG(t *testing.T) {
	png := []byte(pngMagic + "rest")
	got, err := asPNG(png)
	if err != nil || !bytes.Equal(got, png) {
		t.Errorf("asPNG() altered a png payload")
	}

	got, err = asPNG(jpegBytes(t))
	if err != nil {
		t.Fatalf("asPNG() error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte(pngMagic)) {
		t.Error("asPNG() did not convert jpeg to png")
	}

	if _, err := asPNG([]byte("garbage")); err == nil {
		t.Error("asPNG() error = nil for garbage input")
	}
}

func TestDisplayer_Share(t *testing.T) {
	payload := share.Payload{Title: share.Title, Text: share.Text, Data: []byte(pngMagic + "x")}

	var off bytes.Buffer
	if err := New(&off, nil, nil).Share(context.Background(), payload); !errors.Is(err, share.ErrUnavailable) {
		t.Errorf("Share() error = %v, want ErrUnavailable", err)
	}

	var on bytes.Buffer
	if err := New(&on, nil, nil).Force(true).Share(context.Background(), payload); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	out := on.String()
	if !strings.HasPrefix(out, share.Title) || !strings.Contains(out, apcStart) || !strings.Contains(out, share.Text) {
		t.Errorf("Share() output = %q", out)
	}
}

func TestDisplayer_ShareKeepsComposite(t *testing.T) {
	blobs := blob.NewStore()
	var buf bytes.Buffer
	if err := png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}
	orig := blobs.Put(models.MIMEPNG, buf.Bytes())
	gen := blobs.Put(models.MIMEPNG, buf.Bytes())

	var screen bytes.Buffer
	saver := image.NewSaver(blobs)
	dir := t.TempDir()
	svc := share.NewService(saver, New(&screen, saver, nil).Force(true), dir, nil)

	outcomes, err := svc.ShareAll(context.Background(), orig, gen)
	if err != nil {
		t.Fatalf("ShareAll() error = %v", err)
	}
	for _, out := range outcomes {
		if !out.Shared {
			t.Errorf("%s not drawn in the terminal", out.Layout)
		}
		if _, err := os.Stat(filepath.Join(dir, out.Layout.Filename())); err != nil {
			t.Errorf("%s composite not saved: %v", out.Layout, err)
		}
	}
	if !strings.Contains(screen.String(), apcStart) {
		t.Error("composites not written to the terminal")
	}
}

func TestGraphicsSupported(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"kitty program", map[string]string{"TERM_PROGRAM": "kitty"}, true},
		{"iterm program", map[string]string{"TERM_PROGRAM": "iTerm.app"}, true},
		{"wezterm", map[string]string{"TERM_PROGRAM": "WezTerm"}, true},
		{"kitty window", map[string]string{"KITTY_WINDOW_ID": "1"}, true},
		{"iterm session", map[string]string{"ITERM_SESSION_ID": "w0t0p0"}, true},
		{"xterm-kitty", map[string]string{"TERM": "xterm-kitty"}, true},
		{"ghostty term", map[string]string{"TERM": "xterm-ghostty"}, true},
		{"plain xterm", map[string]string{"TERM": "xterm-256color"}, false},
		{"apple terminal", map[string]string{"TERM_PROGRAM": "Apple_Terminal"}, false},
		{"empty", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := GraphicsSupported(getenv); got != tt.want {
				t.Errorf("GraphicsSupported() = %v, want %v", got, tt.want)
			}
		})
	}
}
