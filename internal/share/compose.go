// Package share renders the before/after composites and hands them to a
// platform sharer, falling back to a plain file download.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/manash/ladmaker/pkg/models"
)

var face = basicfont.Face7x13

const (
	headerMargin = 8
	// maxPanelAspect caps a panel's height at this multiple of its width.
	// Taller sources are cropped to fit.
	maxPanelAspect = 2
	// maxSourcePixels bounds the decoded size of a composite source.
	maxSourcePixels = 100_000_000
)

var ErrSourceTooLarge = errors.New("source image too large to compose")

type Fetcher interface {
	Fetch(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

type Compositor struct {
	fetch Fetcher
	log   *zap.SugaredLogger
}

func NewCompositor(fetch Fetcher, log *zap.SugaredLogger) *Compositor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Compositor{fetch: fetch, log: log.Named("share")}
}

// Render returns layout as PNG bytes.
func (c *Compositor) Render(ctx context.Context, layout Layout, original, generated models.ImageRef) ([]byte, error) {
	orig, gen, err := c.load(ctx, original, generated)
	if err != nil {
		return nil, err
	}
	return render(layout, orig, gen)
}

// RenderAll renders every layout from one fetch of the two images.
func (c *Compositor) RenderAll(ctx context.Context, original, generated models.ImageRef) (map[Layout][]byte, error) {
	orig, gen, err := c.load(ctx, original, generated)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(map[Layout][]byte, len(Layouts()))

	g, _ := errgroup.WithContext(ctx)
	for _, layout := range Layouts() {
		g.Go(func() error {
			data, err := render(layout, orig, gen)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", layout, err)
			}
			mu.Lock()
			out[layout] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compositor) load(ctx context.Context, original, generated models.ImageRef) (stdimage.Image, stdimage.Image, error) {
	refs := [2]models.ImageRef{original, generated}
	var imgs [2]stdimage.Image

	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			data, err := c.fetch.Fetch(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", ref, err)
			}
			img, err := decodeBounded(data)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", ref, err)
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	c.log.Debugw("composite sources loaded",
		"original", imgs[0].Bounds().Size(),
		"generated", imgs[1].Bounds().Size(),
	)
	return imgs[0], imgs[1], nil
}

// decodeBounded decodes data after checking its header dimensions against
// maxSourcePixels.
func decodeBounded(data []byte) (stdimage.Image, error) {
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSourceTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := stdimage.Decode(bytes.NewReader(data))
	return img, err
}

func render(layout Layout, original, generated stdimage.Image) ([]byte, error) {
	canvas, err := Compose(layout, original, generated)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

type panel struct {
	caption string
	img     stdimage.Image
	border  color.Color
	height  int
}

// Compose lays out the branded before/after card at Scale times its logical
// size: header, one captioned panel per image, footer, on white.
func Compose(layout Layout, original, generated stdimage.Image) (*stdimage.RGBA, error) {
	m, ok := layoutMetrics[layout]
	if !ok {
		return nil, fmt.Errorf("unknown layout %q", layout)
	}

	cw := m.columnWidth()
	inner := cw - 2*m.border
	panels := []panel{
		{OriginalCaption, original, borderMuted, panelHeight(original, inner)},
		{GeneratedCaption, generated, borderStrong, panelHeight(generated, inner)},
	}

	captionH := lineHeight(m.captionMag)
	cellHeight := func(p panel) int {
		return captionH + m.captionGap + p.height + 2*m.border
	}

	var contentH int
	if m.columns == 1 {
		contentH = cellHeight(panels[0]) + m.gap + cellHeight(panels[1])
	} else {
		contentH = max(cellHeight(panels[0]), cellHeight(panels[1]))
	}

	headerH := lineHeight(m.headerMag)
	footerH := lineHeight(m.footerMag)
	height := m.padding + headerH + headerMargin + m.gap + contentH + m.gap + footerH + m.padding

	canvas := stdimage.NewRGBA(stdimage.Rect(0, 0, m.width*Scale, height*Scale))
	draw.Draw(canvas, canvas.Bounds(), stdimage.White, stdimage.Point{}, draw.Src)

	y := m.padding
	drawText(canvas, Hashtag, 0, m.width, y, m.headerMag, textBlack)
	y += headerH + headerMargin + m.gap

	offset := 0
	for i, p := range panels {
		x := m.padding
		top := y + offset
		if m.columns > 1 {
			x += i * (cw + m.gap)
			top = y
		}

		drawText(canvas, p.caption, x, x+cw, top, m.captionMag, textCaption)
		top += captionH + m.captionGap

		frame := stdimage.Rect(x, top, x+cw, top+p.height+2*m.border)
		draw.Draw(canvas, scaled(frame), stdimage.NewUniform(p.border), stdimage.Point{}, draw.Src)

		slot := frame.Inset(m.border)
		src := coverRect(p.img.Bounds(), slot.Dx(), slot.Dy())
		draw.CatmullRom.Scale(canvas, scaled(slot), p.img, src, draw.Src, nil)

		offset += cellHeight(p) + m.gap
	}
	y += contentH + m.gap

	drawText(canvas, Website, 0, m.width, y, m.footerMag, textFooter)
	return canvas, nil
}

func scaledHeight(img stdimage.Image, width int) int {
	b := img.Bounds()
	if b.Dx() == 0 {
		return 0
	}
	return max(1, int(math.Round(float64(width)*float64(b.Dy())/float64(b.Dx()))))
}

func panelHeight(img stdimage.Image, width int) int {
	return min(scaledHeight(img, width), width*maxPanelAspect)
}

// coverRect returns the centered part of b with the aspect ratio of a w by h
// slot, so scaling it into the slot fills the slot without distortion.
func coverRect(b stdimage.Rectangle, w, h int) stdimage.Rectangle {
	if w <= 0 || h <= 0 || b.Empty() {
		return b
	}
	bw, bh := int64(b.Dx()), int64(b.Dy())
	if bw*int64(h) > bh*int64(w) {
		cw := max(1, int((bh*int64(w)+int64(h)/2)/int64(h)))
		x0 := b.Min.X + (b.Dx()-cw)/2
		return stdimage.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := max(1, int((bw*int64(h)+int64(w)/2)/int64(w)))
	y0 := b.Min.Y + (b.Dy()-ch)/2
	return stdimage.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

func lineHeight(mag int) int {
	return face.Height * mag
}

func scaled(r stdimage.Rectangle) stdimage.Rectangle {
	return stdimage.Rect(r.Min.X*Scale, r.Min.Y*Scale, r.Max.X*Scale, r.Max.Y*Scale)
}

// drawText centers s between x0 and x1 with its top at y, magnified mag times
// in logical pixels.
func drawText(dst draw.Image, s string, x0, x1, y, mag int, c color.Color) {
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return
	}
	glyphs := stdimage.NewRGBA(stdimage.Rect(0, 0, w, face.Height))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  stdimage.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	tw := w * mag
	left := x0 + (x1-x0-tw)/2
	r := stdimage.Rect(left, y, left+tw, y+face.Height*mag)
	draw.NearestNeighbor.Scale(dst, scaled(r), glyphs, glyphs.Bounds(), draw.Over, nil)
}
