package archive

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalArchiver stores snapshots on the local filesystem under a base
// directory. Used in development.
type LocalArchiver struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalArchiver creates a LocalArchiver rooted at basePath, creating
// the directory if needed.
func NewLocalArchiver(basePath string, logger *slog.Logger) (*LocalArchiver, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, &ArchiveError{Op: "init", Key: basePath, Err: err}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &ArchiveError{Op: "init", Key: abs, Err: err}
	}

	logger.Info("initialized local snapshot archive", "path", abs)

	return &LocalArchiver{
		basePath: abs,
		logger:   logger,
	}, nil
}

func (a *LocalArchiver) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.New("invalid key")
	}
	return filepath.Join(a.basePath, clean), nil
}

// Put stores a snapshot, refusing to overwrite an existing one.
func (a *LocalArchiver) Put(ctx context.Context, key string, data []byte) error {
	p, err := a.path(key)
	if err != nil {
		return &ArchiveError{Op: "put", Key: key, Err: err}
	}
	if _, err := os.Stat(p); err == nil {
		return &ArchiveError{Op: "put", Key: key, Err: errors.New("snapshot already exists")}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return &ArchiveError{Op: "put", Key: key, Err: err}
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return &ArchiveError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Get retrieves a stored snapshot.
func (a *LocalArchiver) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := a.path(key)
	if err != nil {
		return nil, &ArchiveError{Op: "get", Key: key, Err: err}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &ArchiveError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// List returns the snapshot keys under a prefix, oldest first. Snapshot
// keys embed their timestamp, so lexical order is chronological order.
func (a *LocalArchiver) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := a.path(prefix)
	if err != nil {
		return nil, &ArchiveError{Op: "list", Key: prefix, Err: err}
	}

	var keys []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.basePath, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &ArchiveError{Op: "list", Key: prefix, Err: err}
	}

	sort.Strings(keys)
	return keys, nil
}
