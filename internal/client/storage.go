package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AudioStore persists generated audio and hands back a reference that the
// audio endpoint can later resolve.
type AudioStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
	// Locate turns a reference into a URL or a local file path.
	Locate(ctx context.Context, ref string) (string, error)
}

const fileScheme = "file://"

// LocalStore keeps audio on the local filesystem under dir
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{dir: abs}, nil
}

// Put writes body to dir/key and returns a file:// reference
func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return fileScheme + path, nil
}

// Delete removes the file behind ref. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	path, err := s.Locate(ctx, ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete audio file: %w", err)
	}
	return nil
}

// Locate returns the file path for ref
func (s *LocalStore) Locate(_ context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, fileScheme) {
		return "", fmt.Errorf("not a local audio reference: %s", ref)
	}
	path := filepath.Clean(strings.TrimPrefix(ref, fileScheme))
	if !s.contains(path) {
		return "", fmt.Errorf("audio reference outside storage dir: %s", ref)
	}
	return path, nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if !s.contains(path) {
		return "", fmt.Errorf("invalid audio key: %s", key)
	}
	return path, nil
}

func (s *LocalStore) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
