package share

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/pkg/models"
)

var ErrUnavailable = errors.New("sharing is not available")

type Payload struct {
	Title    string
	Text     string
	Filename string
	MIMEType string
	Data     []byte
}

type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

// Files fetches source images and writes fallback downloads.
type Files interface {
	Fetcher
	WriteFile(path string, data []byte) error
}

// Outcome reports how a share request was satisfied. Path is where the
// composite, or the fallback download, was written. Shared is set when a
// sharer also accepted the composite.
type Outcome struct {
	Layout Layout
	Shared bool
	Path   string
}

type Service struct {
	comp   *Compositor
	sharer Sharer
	files  Files
	dir    string
	log    *zap.SugaredLogger
}

// NewService shares through sharer, which may be nil, and writes fallbacks
// into dir.
func NewService(files Files, sharer Sharer, dir string, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		comp:   NewCompositor(files, log),
		sharer: sharer,
		files:  files,
		dir:    dir,
		log:    log.Named("share"),
	}
}

func (s *Service) Compositor() *Compositor {
	return s.comp
}

// Share composes layout, saves it to disk and offers it to the sharer. When
// the composite cannot be rendered, the plain generated image is saved. An
// error means nothing could be written.
func (s *Service) Share(ctx context.Context, layout Layout, original, generated models.ImageRef) (Outcome, error) {
	out := Outcome{Layout: layout}

	data, err := s.comp.Render(ctx, layout, original, generated)
	if err != nil {
		s.log.Warnw("composite failed, saving generated image", "layout", layout, "error", err)
		path, err := s.download(ctx, generated)
		if err != nil {
			return out, err
		}
		out.Path = path
		return out, nil
	}

	return s.deliver(ctx, layout, data)
}

// ShareAll is Share for every layout, fetching the source images once.
func (s *Service) ShareAll(ctx context.Context, original, generated models.ImageRef) ([]Outcome, error) {
	rendered, err := s.comp.RenderAll(ctx, original, generated)
	if err != nil {
		s.log.Warnw("composites failed, saving generated image", "error", err)
		path, err := s.download(ctx, generated)
		if err != nil {
			return nil, err
		}
		return []Outcome{{Path: path}}, nil
	}

	outcomes := make([]Outcome, 0, len(rendered))
	for _, layout := range Layouts() {
		out, err := s.deliver(ctx, layout, rendered[layout])
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (s *Service) deliver(ctx context.Context, layout Layout, data []byte) (Outcome, error) {
	out := Outcome{Layout: layout}

	path := filepath.Join(s.dir, layout.Filename())
	if err := s.files.WriteFile(path, data); err != nil {
		return out, fmt.Errorf("failed to save %s: %w", layout, err)
	}
	out.Path = path

	if s.sharer == nil {
		return out, nil
	}
	err := s.sharer.Share(ctx, Payload{
		Title:    Title,
		Text:     Text,
		Filename: layout.Filename(),
		MIMEType: models.MIMEPNG,
		Data:     data,
	})
	if err != nil {
		s.log.Infow("share unavailable, composite saved", "layout", layout, "path", path, "error", err)
		return out, nil
	}
	out.Shared = true
	return out, nil
}

// Download saves the generated image under image.DownloadFilename.
func (s *Service) Download(ctx context.Context, generated models.ImageRef) (string, error) {
	return s.download(ctx, generated)
}

func (s *Service) download(ctx context.Context, generated models.ImageRef) (string, error) {
	data, err := s.files.Fetch(ctx, generated)
	if err != nil {
		return "", fmt.Errorf("failed to fetch generated image: %w", err)
	}
	path := filepath.Join(s.dir, image.DownloadFilename)
	if err := s.files.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("failed to save generated image: %w", err)
	}
	return path, nil
}
