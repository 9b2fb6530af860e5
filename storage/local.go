package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const productsDir = "products"

// LocalStore writes under Dir and serves from BaseURL + "/uploads".
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, productsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) urlPrefix() string {
	return s.BaseURL + "/uploads/" + productsDir + "/"
}

func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	out, err := os.Create(filepath.Join(s.Dir, productsDir, name))
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	if err := out.Sync(); err != nil {
		return "", err
	}
	return s.urlPrefix() + name, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix()) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, s.urlPrefix()))
	err := os.Remove(filepath.Join(s.Dir, productsDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
