package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// FS implements Provider on the local file system.
type FS struct {
	root string // absolute
}

// NewFS roots a provider at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves rel against the root and rejects traversal.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// List walks dir and returns metadata for every .md file, skipping
// hidden directories.
func (f *FS) List(dir string) ([]models.FileMeta, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	out := []models.FileMeta{}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && p == base {
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileMeta{
			Path:      filepath.ToSlash(rel),
			Checksum:  Checksum(data),
			UpdatedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file. A missing file yields an
// error wrapping os.ErrNotExist.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	tmpName, err := writeTemp(filepath.Dir(abs), content)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Create is Write that refuses to replace an existing file. The temp
// file is hard-linked into place so the existence check and the write
// are a single step.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	tmpName, err := writeTemp(filepath.Dir(abs), content)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)
	if err := os.Link(tmpName, abs); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("storage: create %s: %w", path, os.ErrExist)
		}
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames a file within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

func writeTemp(dir string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".laguz-tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	name := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	ok = true
	return name, nil
}
