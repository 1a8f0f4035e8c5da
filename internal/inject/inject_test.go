package inject

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/config"
	"github.com/manash/ladmaker/internal/keys"
	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/internal/server"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/pkg/models"
)

type fakeProvider struct {
	apiKey string
}

func (f *fakeProvider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (f *fakeProvider) Edit(ctx context.Context, req *models.EditRequest) (models.Output, error) {
	return models.Hosted("https://x/" + f.apiKey + ".png"), nil
}

func fakeFactory(cfg *provider.Config, _ *zap.SugaredLogger) (provider.Provider, error) {
	return &fakeProvider{apiKey: cfg.APIKey}, nil
}

func setup(t *testing.T, p Params) *do.Injector {
	t.Helper()
	if p.Config == nil {
		p.Config = config.Defaults()
	}
	p.Config.OutputDir = t.TempDir()
	if p.Getenv == nil {
		p.Getenv = func(string) string { return "" }
	}
	p.Out = &bytes.Buffer{}
	p.NewProvider = fakeFactory

	injector := Setup(p)
	t.Cleanup(func() { injector.Shutdown() })
	return injector
}

func TestSetup_ResolvesServices(t *testing.T) {
	injector := setup(t, Params{})

	if _, err := do.Invoke[*server.Server](injector); err != nil {
		t.Fatalf("Invoke[*server.Server]() error = %v", err)
	}
	machine := do.MustInvoke[*session.Machine](injector)
	if machine != do.MustInvoke[*session.Machine](injector) {
		t.Error("machine should be a singleton")
	}
}

func TestSetup_CredentialPriority(t *testing.T) {
	store := keys.NewStoreAt(t.TempDir())
	store.Set(string(models.ProviderOpenAI), "sk-stored")

	cfg := config.Defaults()
	cfg.APIKey = "sk-config"

	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"flag", Params{APIKeyFlag: "sk-flag", Keys: store, Config: cfg}, "sk-flag"},
		{"stored", Params{Keys: store, Config: cfg}, "sk-stored"},
		{"config env", Params{Config: cfg}, "sk-config"},
		{"process env", Params{Getenv: func(k string) string {
			if k == config.CredentialEnv {
				return "sk-env"
			}
			return ""
		}}, "sk-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params
			if params.Config != nil {
				c := *params.Config
				params.Config = &c
			}
			injector := setup(t, params)

			if got := do.MustInvoke[*keys.Resolver](injector).Credential(); got != tt.want {
				t.Errorf("Credential() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetup_EndToEnd(t *testing.T) {
	injector := setup(t, Params{APIKeyFlag: "sk-flag"})
	machine := do.MustInvoke[*session.Machine](injector)
	blobs := do.MustInvoke[*blob.Store](injector)

	img := models.NewUploadedImage("me.png", models.MIMEPNG, []byte("png"))
	if err := machine.ImageSelected(img); err != nil {
		t.Fatalf("ImageSelected() error = %v", err)
	}
	machine.Wait()

	st := machine.State()
	if st.Kind != session.KindResult || st.Generated != "https://x/sk-flag.png" {
		t.Fatalf("State() = %+v, want hosted result", st)
	}

	machine.Reset()
	if blobs.Len() != 0 {
		t.Errorf("blobs.Len() = %d after reset", blobs.Len())
	}
}

func TestSetup_MissingCredentialReachesErrorState(t *testing.T) {
	injector := setup(t, Params{})
	machine := do.MustInvoke[*session.Machine](injector)

	machine.ImageSelected(models.NewUploadedImage("me.png", models.MIMEPNG, []byte("png")))

	deadline := time.Now().Add(2 * time.Second)
	for machine.State().Kind == session.KindProcessing && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	st := machine.State()
	if st.Kind != session.KindError || st.Message != provider.ErrCredentialMissing.Error() {
		t.Errorf("State() = %+v, want error(%s)", st, provider.ErrCredentialMissing)
	}
}
