package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
)

// LocalStorage implements Storage on a filesystem rooted at the base path.
type LocalStorage struct {
	fs      afero.Fs
	baseURL string
	signer  *URLSigner
}

// NewLocalStorage roots an OS filesystem at cfg.BasePath, creating it if needed.
func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./uploads"
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewLocalStorageFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.BasePath), cfg), nil
}

// NewLocalStorageFs wraps any afero filesystem; tests use afero.NewMemMapFs.
func NewLocalStorageFs(fs afero.Fs, cfg Config) *LocalStorage {
	s := &LocalStorage{fs: fs, baseURL: cfg.BaseURL}
	if cfg.SigningSecret != "" {
		s.signer = NewURLSigner(cfg.SigningSecret)
	}
	return s
}

// Signer returns the URL signer, nil when signing is disabled.
func (s *LocalStorage) Signer() *URLSigner {
	return s.signer
}

func (s *LocalStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}
	if err := afero.WriteReader(s.fs, key, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}
	file, err := s.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	key, err := CleanKey(path)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, key)
}

func (s *LocalStorage) GetURL(ctx context.Context, path string) (string, error) {
	key, err := CleanKey(path)
	if err != nil {
		return "", err
	}
	if s.baseURL == "" {
		return "/files/" + key, nil
	}
	return joinURL(s.baseURL, key), nil
}

// GetSignedURL appends a signed token when a signer is configured and falls
// back to the public URL otherwise.
func (s *LocalStorage) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	url, err := s.GetURL(ctx, path)
	if err != nil || s.signer == nil {
		return url, err
	}
	key, _ := CleanKey(path)
	token, err := s.signer.Sign(key, expiry)
	if err != nil {
		return "", err
	}
	return url + "?token=" + token, nil
}

func (s *LocalStorage) GetSize(ctx context.Context, path string) (int64, error) {
	key, err := CleanKey(path)
	if err != nil {
		return 0, err
	}
	info, err := s.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}
