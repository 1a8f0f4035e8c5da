package image

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/ladmaker/pkg/models"
)

// Load reads a photo from disk the way a browser file picker would: the
// declared type comes from the extension, falling back to content sniffing.
func Load(path string) (models.UploadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.UploadedImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.NewUploadedImage(filepath.Base(path), DetectMIMEType(path, data), data), nil
}

func DetectMIMEType(name string, data []byte) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
