package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
)

// Store implements cloudx.ObjectStore on a directory. Keys are slash
// separated paths below the root. Content type and metadata are not
// persisted.
type Store struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

var _ cloudx.ObjectStore = (*Store)(nil)

func newStore(fs afero.Fs, root string, logger *zap.Logger) *Store {
	return &Store{fs: fs, root: filepath.Clean(root), logger: logger}
}

// Provider implements cloudx.ObjectStore
func (s *Store) Provider() cloudx.Provider { return cloudx.ProviderFile }

// Root returns the directory the store is rooted at
func (s *Store) Root() string { return s.root }

// Fs returns the underlying filesystem
func (s *Store) Fs() afero.Fs { return s.fs }

// path maps key to a filesystem path, refusing keys that leave the root
func (s *Store) path(op, key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "\\") {
		return "", &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: invalid key", cloudx.ErrInvalidInput)}
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Get opens a file for reading
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}
	p, err := s.path("get", key)
	if err != nil {
		return nil, cloudx.Stat{}, err
	}

	f, err := s.fs.Open(p)
	if err != nil {
		return nil, cloudx.Stat{}, mapError(err, "get", key)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cloudx.Stat{}, mapError(err, "get", key)
	}
	if info.IsDir() {
		f.Close()
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: fmt.Errorf("%w: is a directory", cloudx.ErrNotFound)}
	}
	return f, toStat(key, info), nil
}

// Put writes r to a temporary file next to the target and renames it into
// place, so readers never observe a partial object
func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ *cloudx.PutOptions) (cloudx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}
	p, err := s.path("put", key)
	if err != nil {
		return cloudx.Stat{}, err
	}

	dir := filepath.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return cloudx.Stat{}, mapError(err, "put", key)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(p)+".tmp-"+uuid.NewString())
	f, err := s.fs.Create(tmp)
	if err != nil {
		return cloudx.Stat{}, mapError(err, "put", key)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return cloudx.Stat{}, mapError(err, "put", key)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return cloudx.Stat{}, mapError(err, "put", key)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return cloudx.Stat{}, mapError(err, "put", key)
	}

	info, err := s.fs.Stat(p)
	if err != nil {
		return cloudx.Stat{}, mapError(err, "put", key)
	}
	st := toStat(key, info)
	s.logger.Debug("File written", zap.String("key", key), zap.Int64("size", st.Size))
	return st, nil
}

// Head stats a file
func (s *Store) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "head", Key: key, Err: err}
	}
	p, err := s.path("head", key)
	if err != nil {
		return cloudx.Stat{}, err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		return cloudx.Stat{}, mapError(err, "head", key)
	}
	if info.IsDir() {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "head", Key: key, Err: fmt.Errorf("%w: is a directory", cloudx.ErrNotFound)}
	}
	return toStat(key, info), nil
}

// List walks the root and returns files whose key starts with the prefix,
// in lexical order. The continuation token is the last key of the previous
// page.
func (s *Store) List(ctx context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	var all []cloudx.Stat
	err := afero.Walk(s.fs, s.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || strings.Contains(info.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, opts.Prefix) && key > opts.ContinuationToken {
			all = append(all, toStat(key, info))
		}
		return nil
	})
	if err != nil {
		return cloudx.ListPage{}, mapError(err, "list", opts.Prefix)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	page := cloudx.ListPage{Keys: all}
	if opts.PageSize > 0 && len(all) > int(opts.PageSize) {
		page.Keys = all[:opts.PageSize]
		page.NextToken = page.Keys[len(page.Keys)-1].Key
	}
	return page, nil
}

// Delete removes a file
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &cloudx.ObjectError{Op: "delete", Key: key, Err: err}
	}
	p, err := s.path("delete", key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		return mapError(err, "delete", key)
	}
	return nil
}

func toStat(key string, info fs.FileInfo) cloudx.Stat {
	return cloudx.Stat{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}
}

func mapError(err error, op, key string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrNotFound, err)}
	case errors.Is(err, fs.ErrPermission):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrPermissionDenied, err)}
	case errors.Is(err, fs.ErrExist):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrConflict, err)}
	}
	return &cloudx.ObjectError{Op: op, Key: key, Err: err}
}
