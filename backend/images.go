package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Image is a stored image blob.
type Image struct {
	ContentType string
	Data        []byte
}

// ImageStore keeps uploaded images by name.
type ImageStore interface {
	Put(ctx context.Context, name string, img Image) error
	Get(ctx context.Context, name string) (Image, error)
}

// MemoryImageStore is an in-process ImageStore. Safe for concurrent use.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images map[string]Image
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string]Image)}
}

func (s *MemoryImageStore) Put(_ context.Context, name string, img Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = img
	return nil
}

func (s *MemoryImageStore) Get(_ context.Context, name string) (Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[name]
	if !ok {
		return Image{}, ErrNotFound
	}
	return img, nil
}

// DirImageStore writes images as files in a directory.
type DirImageStore struct {
	dir string
}

// NewDirImageStore creates dir if needed.
func NewDirImageStore(dir string) (*DirImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &DirImageStore{dir: dir}, nil
}

func (s *DirImageStore) Put(_ context.Context, name string, img Image) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}
	return nil
}

func (s *DirImageStore) Get(_ context.Context, name string) (Image, error) {
	p, err := s.path(name)
	if err != nil {
		return Image{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Image{}, ErrNotFound
	}
	if err != nil {
		return Image{}, fmt.Errorf("read image %s: %w", name, err)
	}
	return Image{ContentType: http.DetectContentType(data), Data: data}, nil
}

func (s *DirImageStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, name), nil
}
