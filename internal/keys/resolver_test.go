package keys

import "testing"

func TestResolver_Resolve(t *testing.T) {
	stored := NewStoreAt(t.TempDir())
	stored.Set("openai", "sk-stored")
	empty := NewStoreAt(t.TempDir())

	env := func(v string) func(string) string {
		return func(k string) string {
			if k == "OPENAI_API_KEY" {
				return v
			}
			return ""
		}
	}

	tests := []struct {
		name       string
		resolver   Resolver
		wantKey    string
		wantSource Source
	}{
		{"flag wins", Resolver{Flag: "sk-flag", Store: stored, Getenv: env("sk-env")}, "sk-flag", SourceFlag},
		{"stored before env", Resolver{Store: stored, Getenv: env("sk-env")}, "sk-stored", SourceStored},
		{"env fallback", Resolver{Store: empty, Getenv: env("sk-env")}, "sk-env", SourceEnv},
		{"no store", Resolver{Getenv: env("sk-env")}, "sk-env", SourceEnv},
		{"nothing", Resolver{Store: empty, Getenv: env("")}, "", SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.resolver
			r.Provider = "openai"
			r.EnvVar = "OPENAI_API_KEY"

			key, source := r.Resolve()
			if key != tt.wantKey || source != tt.wantSource {
				t.Errorf("Resolve() = %q, %q; want %q, %q", key, source, tt.wantKey, tt.wantSource)
			}
			if r.Credential() != tt.wantKey {
				t.Errorf("Credential() = %q, want %q", r.Credential(), tt.wantKey)
			}
		})
	}
}

func TestResolver_SeesLaterChanges(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	r := &Resolver{Store: store, Provider: "openai", EnvVar: "UNSET", Getenv: func(string) string { return "" }}

	if r.Credential() != "" {
		t.Fatal("Credential() should be empty before a key is stored")
	}
	store.Set("openai", "sk-later")
	if r.Credential() != "sk-later" {
		t.Errorf("Credential() = %q, want sk-later", r.Credential())
	}
}
