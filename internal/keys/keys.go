// Package keys stores provider credentials on disk and resolves which
// credential a request should use.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	// ConfigDirEnv overrides the directory credentials are stored in.
	ConfigDirEnv = "LADMAKER_CONFIG_DIR"
	fileName     = "credentials.json"
)

var ErrNoKey = errors.New("no stored key")

type entry struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	dir string
}

func NewStore() (*Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(dir), nil
}

func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

// ConfigDir is $LADMAKER_CONFIG_DIR, or ladmaker under the user config dir.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "ladmaker"), nil
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

func (s *Store) read() (map[string]entry, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	return entries, nil
}

func (s *Store) write(entries map[string]entry) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return nil
}

func (s *Store) Set(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key cannot be empty")
	}
	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[provider] = entry{Key: key, UpdatedAt: time.Now().UTC()}
	return s.write(entries)
}

// Get returns the stored key for provider, or "" when there is none.
func (s *Store) Get(provider string) (string, error) {
	entries, err := s.read()
	if err != nil {
		return "", err
	}
	return entries[provider].Key, nil
}

func (s *Store) Delete(provider string) error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[provider]; !ok {
		return fmt.Errorf("%w for %s", ErrNoKey, provider)
	}
	delete(entries, provider)
	return s.write(entries)
}

// Providers lists providers with a stored key, sorted.
func (s *Store) Providers() ([]string, error) {
	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	names := lo.Keys(entries)
	sort.Strings(names)
	return names, nil
}

// Mask keeps the first and last four characters of long keys.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
