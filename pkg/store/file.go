package store

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileStore keeps one JSON file per snapshot under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store in dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "petrisync")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (f *FileStore) Dir() string { return f.dir }

// Get reads a snapshot. A corrupt file is removed and reported as missing.
func (f *FileStore) Get(ctx context.Context, name string) (*Snapshot, error) {
	path := f.path(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil || s.Name != name {
		_ = os.Remove(path)
		return nil, ErrNotFound
	}
	return &s, nil
}

// Put writes a snapshot, replacing any previous file.
func (f *FileStore) Put(ctx context.Context, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	path := f.path(s.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes a snapshot file.
func (f *FileStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(f.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List walks the directory and reads the name stored in every file.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var head struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &head) == nil && head.Name != "" {
			names = append(names, head.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// Close does nothing for a file store.
func (f *FileStore) Close() error { return nil }

// path spreads files over subdirectories named by the first two hash chars.
func (f *FileStore) path(name string) string {
	h := Hash([]byte(name))
	return filepath.Join(f.dir, h[:2], h[2:]+".json")
}

var _ Store = (*FileStore)(nil)
