package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bitmark-inc/client-gallery/log"
)

const (
	DefaultLocalDir   = "./uploads"
	DefaultLocalRoute = "/uploads"
)

// LocalStorage writes files into a directory served statically under route
type LocalStorage struct {
	dir   string
	route string
}

func NewLocalStorage(dir, route string) (*LocalStorage, error) {
	if dir == "" {
		dir = DefaultLocalDir
	}
	if route == "" {
		route = DefaultLocalRoute
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &LocalStorage{
		dir:   dir,
		route: "/" + strings.Trim(route, "/"),
	}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Route() string {
	return s.route
}

func (s *LocalStorage) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	p := filepath.Join(s.dir, name)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", err
	}

	log.Debug("file stored", log.SourceStorage, zap.String("path", p))

	return path.Join(s.route, name), nil
}

// Delete removes a file previously returned by Save. Missing files are ignored.
func (s *LocalStorage) Delete(_ context.Context, url string) error {
	name := strings.TrimPrefix(url, s.route+"/")
	if name == url || name != filepath.Base(name) {
		return fmt.Errorf("url %q is not served by local storage", url)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
