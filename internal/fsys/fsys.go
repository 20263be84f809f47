// Package fsys implements the workspace-scoped file CRUD surface backing
// the peripheral /api/v1/files/* routes (SPEC_FULL.md: "peripheral per
// spec" — only the envelope/auth contract is load-bearing, but the
// operations themselves are grounded on the donor's
// src/handler/filesystem package, generalized from its rooted-at-"/"
// Filesystem type to operate against an arbitrary workspace root resolved
// through internal/pathutil).
package fsys

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devbox-run/agent/internal/pathutil"
)

// Entry describes one file or directory returned by List.
type Entry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"isDirectory"`
	Size         int64     `json:"size"`
	Permissions  string    `json:"permissions"`
	LastModified time.Time `json:"lastModified"`
}

// FileContent is the result of Read.
type FileContent struct {
	Path         string    `json:"path"`
	Content      []byte    `json:"content"`
	Size         int64     `json:"size"`
	Permissions  string    `json:"permissions"`
	LastModified time.Time `json:"lastModified"`
}

// Root resolves a workspace-scoped path into an absolute filesystem path.
// Every operation below takes the already-resolved absolute path; callers
// resolve with pathutil.ValidatePath(workspaceRoot, userPath) first so the
// path contract (SPEC_FULL.md §6.2) is enforced in exactly one place.
func Root(workspaceRoot, userPath string) string {
	return pathutil.ValidatePath(workspaceRoot, userPath)
}

func entryFor(path string, info os.FileInfo) Entry {
	return Entry{
		Name:         filepath.Base(path),
		Path:         path,
		IsDirectory:  info.IsDir(),
		Size:         info.Size(),
		Permissions:  info.Mode().String(),
		LastModified: info.ModTime(),
	}
}

// List returns the direct children of the directory at path.
func List(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		childInfo, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, entryFor(filepath.Join(path, de.Name()), childInfo))
	}
	return out, nil
}

// Read returns a file's content and metadata.
func Read(path string) (*FileContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileContent{
		Path:         path,
		Content:      data,
		Size:         info.Size(),
		Permissions:  info.Mode().String(),
		LastModified: info.ModTime(),
	}, nil
}

// Write creates or overwrites the file at path, creating parent
// directories as needed.
func Write(path string, content []byte, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, content, perm)
}

// Delete removes the file or directory at path. recursive is required to
// remove a non-empty directory.
func Delete(path string, recursive bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() && recursive {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// Move renames or relocates src to dst, creating dst's parent directory
// as needed. Rename is Move by another name at the HTTP layer.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// BatchUpload writes every relative-path -> content pair under root,
// creating parent directories as needed (grounded on the donor's
// CreateOrUpdateTree).
func BatchUpload(root string, files map[string]string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := Write(full, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
	}
	return nil
}

// BatchDownload reads every path in paths and returns a path -> content map.
func BatchDownload(paths []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out[p] = data
	}
	return out, nil
}

// Watch streams filesystem change notifications for path via fsnotify,
// optionally recursing into subdirectories. The returned stop function
// closes the underlying watcher; callers should defer it.
func Watch(path string, recursive bool, cb func(fsnotify.Event)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	addDir := func(dir string) error { return watcher.Add(dir) }
	if recursive {
		walkErr := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return addDir(p)
			}
			return nil
		})
		if walkErr != nil {
			_ = watcher.Close()
			return nil, walkErr
		}
	} else if err := addDir(path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if recursive && event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = addDir(event.Name)
					}
				}
				cb(event)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
