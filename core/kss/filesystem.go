package kss

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/relabs-tech/homesense/core/logger"
)

// LocalFilesystem stores every key as a file below a base folder
type LocalFilesystem struct {
	baseFolder string
}

// NewLocalFilesystem returns a new LocalFilesystem. The base folder is created if needed.
func NewLocalFilesystem(config LocalConfiguration) (*LocalFilesystem, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("BasePath must not be empty")
	}
	if err := os.MkdirAll(config.BasePath, 0700); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", config.BasePath, err)
	}
	return &LocalFilesystem{baseFolder: config.BasePath}, nil
}

// Upload writes r to the file for key
func (f *LocalFilesystem) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	filePath := filepath.Join(f.baseFolder, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return "", err
	}
	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err = io.Copy(dst, r); err != nil {
		return "", err
	}
	logger.FromContext(ctx).Infof("Filesystem: stored key '%s'", key)
	return filePath, nil
}

// List returns all keys starting with prefix
func (f *LocalFilesystem) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.WalkDir(f.baseFolder, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(f.baseFolder, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

// Delete deletes the key file
func (f *LocalFilesystem) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(f.baseFolder, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
