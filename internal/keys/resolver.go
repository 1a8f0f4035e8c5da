package keys

import (
	"os"
)

type Source string

const (
	SourceFlag   Source = "command-line flag"
	SourceStored Source = "stored key"
	SourceEnv    Source = "environment variable"
	SourceNone   Source = "not configured"
)

// Resolver picks a credential in priority order: explicit flag, stored key,
// environment variable. It is evaluated on every call so keys set or removed
// while the process runs take effect on the next request.
type Resolver struct {
	Flag     string
	Store    *Store
	Provider string
	EnvVar   string
	Getenv   func(string) string
}

func (r *Resolver) Resolve() (string, Source) {
	if r.Flag != "" {
		return r.Flag, SourceFlag
	}
	if r.Store != nil {
		if key, err := r.Store.Get(r.Provider); err == nil && key != "" {
			return key, SourceStored
		}
	}
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if key := getenv(r.EnvVar); key != "" {
		return key, SourceEnv
	}
	return "", SourceNone
}

// Credential returns just the resolved key.
func (r *Resolver) Credential() string {
	key, _ := r.Resolve()
	return key
}
