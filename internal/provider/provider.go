package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/manash/ladmaker/pkg/models"
)

var (
	ErrCredentialMissing     = errors.New("credential not configured")
	ErrCredentialPlaceholder = errors.New("credential is a placeholder")
	ErrUnsupportedType       = errors.New("unsupported file type")
	ErrRemote                = errors.New("remote error")
	ErrTransport             = errors.New("request failed")
	ErrNoImageData           = errors.New("no image data returned")
	ErrNoImageSource         = errors.New("no image url or inline data in response")
	ErrInlineDecode          = errors.New("failed to decode inline image data")
)

// Provider edits an uploaded image into one normalized output.
type Provider interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (models.Output, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	// Timeout of zero leaves the remote call unbounded.
	Timeout time.Duration
	Verbose bool
}

var placeholderPatterns = []string{"your_ope", "************"}

// CheckCredential reports whether key is usable for a request.
func CheckCredential(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrCredentialMissing
	}
	if IsPlaceholder(key) {
		return ErrCredentialPlaceholder
	}
	return nil
}

func IsPlaceholder(key string) bool {
	return lo.SomeBy(placeholderPatterns, func(p string) bool {
		return strings.Contains(key, p)
	})
}
