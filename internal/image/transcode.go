package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/manash/ladmaker/pkg/models"
)

const (
	DefaultThreshold    int64 = 50 * 1024 * 1024
	DefaultMaxDimension       = 1024
	DefaultQuality            = 80
)

// Transcoder shrinks uploads that are too large to send as-is.
type Transcoder struct {
	threshold    int64
	maxDimension int
	quality      int
}

func NewTranscoder() *Transcoder {
	return NewTranscoderWithLimits(DefaultThreshold, DefaultMaxDimension, DefaultQuality)
}

func NewTranscoderWithLimits(threshold int64, maxDimension, quality int) *Transcoder {
	return &Transcoder{
		threshold:    threshold,
		maxDimension: maxDimension,
		quality:      quality,
	}
}

// NeedsTranscode reports whether img exceeds the byte threshold.
func (t *Transcoder) NeedsTranscode(img models.UploadedImage) bool {
	return img.Size > t.threshold
}

// Transcode returns img unchanged when it is within the threshold. Otherwise it
// decodes, fits the image inside maxDimension and re-encodes it as JPEG.
func (t *Transcoder) Transcode(img models.UploadedImage) (models.UploadedImage, error) {
	if !t.NeedsTranscode(img) {
		return img, nil
	}

	src, _, err := stdimage.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := FitDimensions(bounds.Dx(), bounds.Dy(), t.maxDimension)

	var out stdimage.Image = src
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: t.quality}); err != nil {
		return img, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return models.NewUploadedImage(jpegName(img.Name), models.MIMEJPEG, buf.Bytes()), nil
}

// FitDimensions scales width and height by maxDimension / max(width, height)
// when the larger side exceeds maxDimension.
func FitDimensions(width, height, maxDimension int) (int, int) {
	larger := max(width, height)
	if larger <= maxDimension || larger == 0 {
		return width, height
	}

	scale := float64(maxDimension) / float64(larger)
	if width >= height {
		return maxDimension, max(1, int(math.Round(float64(height)*scale)))
	}
	return max(1, int(math.Round(float64(width)*scale))), maxDimension
}

func jpegName(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
