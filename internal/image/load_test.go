package image

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/manash/ladmaker/pkg/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	pngData := encodePNG(t, 8, 8)

	tests := []struct {
		name string
		want string
	}{
		{"photo.png", models.MIMEPNG},
		{"photo.JPG", models.MIMEJPEG},
		{"photo.gif", models.MIMEGIF},
		{"photo", models.MIMEPNG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, pngData, 0o644); err != nil {
				t.Fatal(err)
			}

			img, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if img.MIMEType != tt.want {
				t.Errorf("MIMEType = %s, want %s", img.MIMEType, tt.want)
			}
			if img.Name != tt.name || img.Size != int64(len(pngData)) {
				t.Errorf("Load() = %s (%d bytes)", img.Name, img.Size)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want not exist", err)
	}
}

func TestDetectMIMEType_Sniffs(t *testing.T) {
	if got := DetectMIMEType("upload", []byte("plain words")); got != "text/plain" {
		t.Errorf("DetectMIMEType() = %q, want text/plain", got)
	}
}
