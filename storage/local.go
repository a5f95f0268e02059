package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps objects in a directory. URLs are formed by joining the
// public base URL and the key, which lets a static file server expose them.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("error creating storage directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("error creating directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("error writing %s: %w", key, err)
	}
	return s.baseURL + "/" + filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}

func (s *LocalStore) KeyFromURL(rawURL string) (string, error) {
	rawURL = strings.SplitN(rawURL, "?", 2)[0]
	if !strings.HasPrefix(rawURL, s.baseURL+"/") {
		return "", fmt.Errorf("URL %q is not served by this store", rawURL)
	}
	key := strings.TrimPrefix(rawURL, s.baseURL+"/")
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return key, nil
}

// PresignURL returns the public URL; local objects need no signature. The
// object must exist.
func (s *LocalStore) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	} else if err != nil {
		return "", fmt.Errorf("error reading %s: %w", key, err)
	}
	return s.baseURL + "/" + filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}
