// Package inject wires Lad Maker's services together.
package inject

import (
	"io"
	"os"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/config"
	"github.com/manash/ladmaker/internal/display"
	"github.com/manash/ladmaker/internal/generator"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/keys"
	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/internal/provider/openai"
	"github.com/manash/ladmaker/internal/security"
	"github.com/manash/ladmaker/internal/server"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
	"github.com/manash/ladmaker/pkg/models"
)

type Params struct {
	Config *config.Config
	Logger *zap.SugaredLogger
	// APIKeyFlag is the --api-key value, highest credential priority.
	APIKeyFlag  string
	Keys        *keys.Store
	Getenv      func(string) string
	Out         io.Writer
	NewProvider generator.ProviderFactory
}

func OpenAIProvider(cfg *provider.Config, log *zap.SugaredLogger) (provider.Provider, error) {
	return openai.New(cfg, log)
}

func Setup(p Params) *do.Injector {
	log := p.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if p.Config == nil {
		p.Config = config.Defaults()
	}
	if p.Getenv == nil {
		p.Getenv = os.Getenv
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.NewProvider == nil {
		p.NewProvider = OpenAIProvider
	}

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Named("inject").Debugf(format, args...)
		},
	})

	do.ProvideValue[*config.Config](injector, p.Config)
	do.ProvideValue[*zap.SugaredLogger](injector, log)
	do.ProvideValue[*blob.Store](injector, blob.NewStore())

	do.Provide[*keys.Resolver](injector, func(i *do.Injector) (*keys.Resolver, error) {
		return &keys.Resolver{
			Flag:     p.APIKeyFlag,
			Store:    p.Keys,
			Provider: string(models.ProviderOpenAI),
			EnvVar:   config.CredentialEnv,
			Getenv: func(k string) string {
				// The loaded config already folded .env into the environment.
				if k == config.CredentialEnv && p.Config.APIKey != "" {
					return p.Config.APIKey
				}
				return p.Getenv(k)
			},
		}, nil
	})

	do.Provide[*image.Saver](injector, func(i *do.Injector) (*image.Saver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		policy := security.DefaultURLPolicy()
		if cfg.StrictURLs {
			policy = security.StrictURLPolicy()
		}
		return image.NewSaverWithPolicy(do.MustInvoke[*blob.Store](i), policy), nil
	})

	do.Provide[*generator.Client](injector, func(i *do.Injector) (*generator.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return generator.New(generator.Options{
			Credential:  do.MustInvoke[*keys.Resolver](i).Credential,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.RequestTimeout,
			Verbose:     cfg.Verbose,
			NewProvider: p.NewProvider,
			Transcoder:  image.NewTranscoder(),
			Blobs:       do.MustInvoke[*blob.Store](i),
			Log:         do.MustInvoke[*zap.SugaredLogger](i),
		}), nil
	})

	do.Provide[*session.Machine](injector, func(i *do.Injector) (*session.Machine, error) {
		return session.NewMachine(
			do.MustInvoke[*generator.Client](i),
			do.MustInvoke[*blob.Store](i),
			do.MustInvoke[*zap.SugaredLogger](i),
		), nil
	})

	do.Provide[*display.Displayer](injector, func(i *do.Injector) (*display.Displayer, error) {
		return display.New(p.Out, do.MustInvoke[*image.Saver](i), do.MustInvoke[*zap.SugaredLogger](i)), nil
	})

	do.Provide[*share.Service](injector, func(i *do.Injector) (*share.Service, error) {
		return share.NewService(
			do.MustInvoke[*image.Saver](i),
			do.MustInvoke[*display.Displayer](i),
			do.MustInvoke[*config.Config](i).OutputDir,
			do.MustInvoke[*zap.SugaredLogger](i),
		), nil
	})

	do.Provide[*server.Server](injector, func(i *do.Injector) (*server.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return server.New(
			do.MustInvoke[*session.Machine](i),
			do.MustInvoke[*blob.Store](i),
			do.MustInvoke[*image.Saver](i),
			do.MustInvoke[*share.Service](i).Compositor(),
			server.Options{MaxUploadBytes: cfg.MaxUploadBytes},
			do.MustInvoke[*zap.SugaredLogger](i),
		), nil
	})

	return injector
}
