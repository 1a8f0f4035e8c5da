package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrNoImageData = errors.New("image data is required")
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
)

// Fixed parameters of every edit request.
const (
	EditModel   = "gpt-image-1"
	EditSize    = "1024x1024"
	EditQuality = "medium"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEJPG  = "image/jpg"
	MIMEGIF  = "image/gif"
)

func SupportedMIMETypes() []string {
	return []string{MIMEPNG, MIMEJPEG, MIMEJPG, MIMEGIF}
}

func IsSupportedMIMEType(mimeType string) bool {
	return lo.Contains(SupportedMIMETypes(), mimeType)
}

// ImageRef is a displayable handle: a remote URL or a local blob reference.
type ImageRef string

const BlobScheme = "blob:"

func (r ImageRef) IsBlob() bool {
	return strings.HasPrefix(string(r), BlobScheme)
}

// BlobID returns the id part of a blob reference, or "" for remote URLs.
func (r ImageRef) BlobID() string {
	if !r.IsBlob() {
		return ""
	}
	return strings.TrimPrefix(string(r), BlobScheme)
}

func (r ImageRef) String() string {
	return string(r)
}

type UploadedImage struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

func NewUploadedImage(name, mimeType string, data []byte) UploadedImage {
	return UploadedImage{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
}

func (u UploadedImage) Filename() string {
	if u.Name != "" {
		return u.Name
	}
	switch u.MIMEType {
	case MIMEJPEG, MIMEJPG:
		return "image.jpg"
	case MIMEGIF:
		return "image.gif"
	default:
		return "image.png"
	}
}

type EditRequest struct {
	Image    []byte
	MIMEType string
	Filename string
	Prompt   string
	Model    string
	Size     string
	Quality  string
}

func NewEditRequest(img UploadedImage, prompt string) *EditRequest {
	return &EditRequest{
		Image:    img.Data,
		MIMEType: img.MIMEType,
		Filename: img.Filename(),
		Prompt:   prompt,
		Model:    EditModel,
		Size:     EditSize,
		Quality:  EditQuality,
	}
}

func (r *EditRequest) Validate() error {
	if len(r.Image) == 0 {
		return ErrNoImageData
	}
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Output is one normalized remote entry: exactly one of URL or Data is set.
type Output struct {
	URL  string
	Data []byte
}

func Hosted(url string) Output {
	return Output{URL: url}
}

func Inline(data []byte) Output {
	return Output{Data: data}
}

func (o Output) IsHosted() bool {
	return o.URL != ""
}

type GenerationResult struct {
	ok     bool
	ref    ImageRef
	reason string
}

func Succeeded(ref ImageRef) GenerationResult {
	return GenerationResult{ok: true, ref: ref}
}

func Failed(reason string) GenerationResult {
	return GenerationResult{reason: reason}
}

func Failedf(format string, args ...any) GenerationResult {
	return Failed(fmt.Sprintf(format, args...))
}

func (r GenerationResult) OK() bool {
	return r.ok
}

func (r GenerationResult) Ref() ImageRef {
	return r.ref
}

func (r GenerationResult) Reason() string {
	return r.reason
}

func (r GenerationResult) String() string {
	return lo.Ternary(r.ok, "success("+r.ref.String()+")", "failure("+r.reason+")")
}
