package image

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/security"
	"github.com/manash/ladmaker/pkg/models"
)

// localSaver may download from httptest servers.
func localSaver(blobs *blob.Store) *Saver {
	return NewSaverWithPolicy(blobs, security.URLPolicy{AllowInsecure: true, AllowPrivate: true})
}

func TestNewSaver(t *testing.T) {
	s := NewSaver(blob.NewStore())
	if s == nil {
		t.Fatal("NewSaver() returned nil")
	}
	if s.httpClient == nil {
		t.Fatal("NewSaver() httpClient is nil")
	}
}

func TestSaver_Fetch_Blob(t *testing.T) {
	blobs := blob.NewStore()
	ref := blobs.Put(models.MIMEPNG, []byte("inline image"))

	data, err := NewSaver(blobs).Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "inline image" {
		t.Errorf("Fetch() = %q, want %q", data, "inline image")
	}
}

func TestSaver_Fetch_ReleasedBlob(t *testing.T) {
	blobs := blob.NewStore()
	ref := blobs.Put(models.MIMEPNG, []byte("gone"))
	blobs.Release(ref)

	if _, err := NewSaver(blobs).Fetch(context.Background(), ref); err == nil {
		t.Fatal("Fetch() error = nil, want error for released blob")
	}
}

func TestSaver_Fetch_URL(t *testing.T) {
	expectedData := []byte("downloaded image content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(expectedData)
	}))
	defer server.Close()

	data, err := localSaver(nil).Fetch(context.Background(), models.ImageRef(server.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != string(expectedData) {
		t.Errorf("Fetch() data mismatch")
	}
}

func TestSaver_Fetch_DownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := localSaver(nil).Fetch(context.Background(), models.ImageRef(server.URL)); err == nil {
		t.Fatal("Fetch() error = nil, want error for download failure")
	}
}

func TestSaver_Fetch_Empty(t *testing.T) {
	if _, err := NewSaver(nil).Fetch(context.Background(), ""); err == nil {
		t.Fatal("Fetch() error = nil, want error for empty ref")
	}
}

func TestSaver_Save(t *testing.T) {
	blobs := blob.NewStore()
	ref := blobs.Put(models.MIMEPNG, []byte("lad"))
	path := filepath.Join(t.TempDir(), "out", DownloadFilename)

	if err := NewSaver(blobs).Save(context.Background(), ref, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if string(data) != "lad" {
		t.Errorf("saved data = %q, want %q", data, "lad")
	}
}

func TestSaver_WriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "nested", "test.png")

	if err := NewSaver(nil).WriteFile(path, []byte("data")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("WriteFile() did not create nested directory")
	}
}

func TestSaver_WriteFile_RejectsReservedName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "con.png")

	if err := NewSaver(nil).WriteFile(path, []byte("data")); err == nil {
		t.Fatal("WriteFile() error = nil, want error for reserved filename")
	}
}

func TestSaver_Fetch_RejectsLoopbackByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("download attempted despite url policy")
	}))
	defer server.Close()

	_, err := NewSaver(nil).Fetch(context.Background(), models.ImageRef(server.URL))
	if !errors.Is(err, security.ErrInvalidScheme) {
		t.Errorf("Fetch() error = %v, want ErrInvalidScheme", err)
	}

	_, err = NewSaverWithPolicy(nil, security.URLPolicy{AllowInsecure: true}).Fetch(context.Background(), models.ImageRef(server.URL))
	if !errors.Is(err, security.ErrPrivateIP) {
		t.Errorf("Fetch() error = %v, want ErrPrivateIP", err)
	}
}
