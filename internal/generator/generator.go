// Package generator turns an uploaded photo into a Lad style image reference.
//
// Generate never returns an error: configuration, validation, remote and
// transport problems all come back as a failed models.GenerationResult whose
// reason is shown to the user as-is.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/cost"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/pkg/models"
)

// InlineMIMEType is the content type recorded for decoded inline payloads.
const InlineMIMEType = models.MIMEPNG

type ProviderFactory func(cfg *provider.Config, log *zap.SugaredLogger) (provider.Provider, error)

type Options struct {
	// Credential is consulted on every call.
	Credential  func() string
	BaseURL     string
	Timeout     time.Duration
	Verbose     bool
	NewProvider ProviderFactory
	Transcoder  *image.Transcoder
	Blobs       *blob.Store
	Log         *zap.SugaredLogger
}

type Client struct {
	credential  func() string
	baseURL     string
	timeout     time.Duration
	verbose     bool
	newProvider ProviderFactory
	transcoder  *image.Transcoder
	blobs       *blob.Store
	calc        *cost.Calculator
	log         *zap.SugaredLogger
}

func New(opts Options) *Client {
	c := &Client{
		credential:  opts.Credential,
		baseURL:     opts.BaseURL,
		timeout:     opts.Timeout,
		verbose:     opts.Verbose,
		newProvider: opts.NewProvider,
		transcoder:  opts.Transcoder,
		blobs:       opts.Blobs,
		calc:        cost.NewCalculator(),
		log:         opts.Log,
	}
	if c.credential == nil {
		c.credential = func() string { return "" }
	}
	if c.transcoder == nil {
		c.transcoder = image.NewTranscoder()
	}
	if c.blobs == nil {
		c.blobs = blob.NewStore()
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	c.log = c.log.Named("generator")
	return c
}

// Blobs returns the store inline results are materialized into.
func (c *Client) Blobs() *blob.Store {
	return c.blobs
}

// EstimatePerImage prices one edit with the fixed request parameters.
func (c *Client) EstimatePerImage() cost.Estimate {
	return c.calc.Edit(models.EditModel, models.EditSize, models.EditQuality, 1)
}

func (c *Client) Generate(ctx context.Context, img models.UploadedImage) models.GenerationResult {
	ref, err := c.generate(ctx, img)
	if err != nil {
		c.log.Warnw("generation failed", "error", err, "type", img.MIMEType, "size", humanize.Bytes(uint64(img.Size)))
		return models.Failed(err.Error())
	}
	return models.Succeeded(ref)
}

func (c *Client) generate(ctx context.Context, img models.UploadedImage) (models.ImageRef, error) {
	key := c.credential()
	if err := provider.CheckCredential(key); err != nil {
		return "", err
	}

	if !models.IsSupportedMIMEType(img.MIMEType) {
		return "", fmt.Errorf("%w: %s", provider.ErrUnsupportedType, img.MIMEType)
	}

	if c.newProvider == nil {
		return "", errors.New("no image provider configured")
	}

	prov, err := c.newProvider(&provider.Config{
		APIKey:  key,
		BaseURL: c.baseURL,
		Timeout: c.timeout,
		Verbose: c.verbose,
	}, c.log)
	if err != nil {
		return "", err
	}

	prepared := c.prepare(img)

	req := models.NewEditRequest(prepared, Prompt)
	estimate := c.calc.Edit(req.Model, req.Size, req.Quality, 1)
	c.log.Infow("sending edit request",
		"provider", prov.Name(),
		"model", req.Model,
		"type", req.MIMEType,
		"size", humanize.Bytes(uint64(len(req.Image))),
		"estimated_cost", fmt.Sprintf("$%.3f", estimate.Total),
	)

	start := time.Now()
	out, err := prov.Edit(ctx, req)
	if err != nil {
		return "", err
	}

	ref := c.materialize(out)
	c.log.Infow("edit complete",
		"took", time.Since(start).Round(time.Millisecond),
		"hosted", out.IsHosted(),
		"ref", ref,
	)
	return ref, nil
}

func (c *Client) prepare(img models.UploadedImage) models.UploadedImage {
	if !c.transcoder.NeedsTranscode(img) {
		return img
	}

	out, err := c.transcoder.Transcode(img)
	if err != nil {
		c.log.Warnw("transcode failed, sending original", "error", err)
		return img
	}

	c.log.Infow("image transcoded",
		"from", humanize.Bytes(uint64(img.Size)),
		"to", humanize.Bytes(uint64(out.Size)),
	)
	return out
}

func (c *Client) materialize(out models.Output) models.ImageRef {
	if out.IsHosted() {
		return models.ImageRef(out.URL)
	}
	return c.blobs.Put(InlineMIMEType, out.Data)
}
