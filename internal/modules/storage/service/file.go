package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"volatility_bot/internal/models"
)

// File хранит снимок одним json-файлом, запись через tmp + rename.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load(_ context.Context) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Snapshot{}, ErrNoSnapshot
		}
		return models.Snapshot{}, errors.Wrapf(err, "read %s", f.path)
	}

	var snap models.Snapshot
	if err := sonic.Unmarshal(b, &snap); err != nil {
		return models.Snapshot{}, errors.Wrapf(err, "decode %s", f.path)
	}
	return snap, nil
}

func (f *File) Save(_ context.Context, s models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "mkdir %s", dir)
		}
	}

	b, err := sonic.ConfigStd.MarshalIndent(&s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrap(os.Rename(tmp, f.path), "rename snapshot")
}

func (f *File) Close() error { return nil }
