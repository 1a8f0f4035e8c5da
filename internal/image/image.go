package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/security"
	"github.com/manash/ladmaker/pkg/models"
)

// DownloadFilename is the name a generated image is saved under.
const DownloadFilename = "lad-maker-image.png"

type Saver struct {
	httpClient *http.Client
	blobs      *blob.Store
	policy     security.URLPolicy
}

func NewSaver(blobs *blob.Store) *Saver {
	return NewSaverWithPolicy(blobs, security.DefaultURLPolicy())
}

// NewSaverWithPolicy is NewSaver with a custom rule for which hosted results
// may be downloaded.
func NewSaverWithPolicy(blobs *blob.Store, policy security.URLPolicy) *Saver {
	return &Saver{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		blobs:  blobs,
		policy: policy,
	}
}

// Fetch resolves ref to image bytes, from the blob store or by download.
func (s *Saver) Fetch(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	switch {
	case ref.IsBlob():
		if s.blobs == nil {
			return nil, fmt.Errorf("no blob store for %s", ref)
		}
		b, err := s.blobs.Get(ref)
		if err != nil {
			return nil, err
		}
		return b.Data, nil
	case ref != "":
		if err := s.policy.Check(ctx, ref.String()); err != nil {
			return nil, fmt.Errorf("refusing to download image: %w", err)
		}
		data, err := s.downloadFromURL(ctx, ref.String())
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("no image data available")
	}
}

func (s *Saver) Save(ctx context.Context, ref models.ImageRef, path string) error {
	data, err := s.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	return s.WriteFile(path, data)
}

func (s *Saver) WriteFile(path string, data []byte) error {
	if err := security.CheckOutputName(filepath.Base(path)); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *Saver) downloadFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
