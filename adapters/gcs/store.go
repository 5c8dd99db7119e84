package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
)

// defaultPageSize is used when ListOptions.PageSize is zero
const defaultPageSize = 1000

// Store implements cloudx.ObjectStore on a GCS bucket
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	loc    cloudx.Location
	logger *zap.Logger
	budget *budget.Budget
}

var _ cloudx.ObjectStore = (*Store)(nil)

func newStore(client *storage.Client, loc cloudx.Location, logger *zap.Logger, b *budget.Budget) *Store {
	return &Store{client: client, bucket: client.Bucket(loc.Bucket), loc: loc, logger: logger, budget: b}
}

// Provider implements cloudx.ObjectStore
func (s *Store) Provider() cloudx.Provider { return cloudx.ProviderGCS }

// Client returns the underlying storage client
func (s *Store) Client() *storage.Client { return s.client }

// Location returns the bucket and prefix the store is rooted at
func (s *Store) Location() cloudx.Location { return s.loc }

// Close releases the client's connections
func (s *Store) Close() error { return s.client.Close() }

// Get retrieves an object as a streaming reader. The download holds one
// budget unit until the reader is closed.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	if err := s.budget.Acquire(ctx, 1); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}
	r, err := s.bucket.Object(s.loc.Join(key)).NewReader(ctx)
	if err != nil {
		s.budget.Release(1)
		return nil, cloudx.Stat{}, MapGCSError(err, "get", key)
	}
	return s.budget.ReleaseOnClose(r, 1), cloudx.Stat{
		Key:          key,
		Size:         r.Attrs.Size,
		ContentType:  r.Attrs.ContentType,
		LastModified: r.Attrs.LastModified,
	}, nil
}

// Put streams r into a resumable upload
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts *cloudx.PutOptions) (cloudx.Stat, error) {
	if opts == nil {
		opts = &cloudx.PutOptions{}
	}

	if err := s.budget.Acquire(ctx, 1); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}
	defer s.budget.Release(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(s.loc.Join(key)).NewWriter(ctx)
	w.ContentType = opts.ContentType
	if len(opts.Metadata) > 0 {
		w.Metadata = opts.Metadata
	}

	if _, err := io.Copy(w, r); err != nil {
		// cancelling the context aborts the upload
		cancel()
		_ = w.Close()
		return cloudx.Stat{}, MapGCSError(err, "put", key)
	}
	if err := w.Close(); err != nil {
		return cloudx.Stat{}, MapGCSError(err, "put", key)
	}

	st := toStat(key, w.Attrs())
	s.logger.Debug("Object put successfully",
		zap.String("key", key),
		zap.Int64("size", st.Size),
		zap.String("etag", st.ETag))
	return st, nil
}

// Head retrieves object metadata
func (s *Store) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	attrs, err := s.bucket.Object(s.loc.Join(key)).Attrs(ctx)
	if err != nil {
		return cloudx.Stat{}, MapGCSError(err, "head", key)
	}
	return toStat(key, attrs), nil
}

// List retrieves one page of objects below the store prefix
func (s *Store) List(ctx context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	pageSize := defaultPageSize
	if opts.PageSize > 0 {
		pageSize = int(opts.PageSize)
	}

	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.loc.Join(opts.Prefix)})
	var objects []*storage.ObjectAttrs
	next, err := iterator.NewPager(it, pageSize, opts.ContinuationToken).NextPage(&objects)
	if err != nil {
		return cloudx.ListPage{}, MapGCSError(err, "list", opts.Prefix)
	}

	page := cloudx.ListPage{Keys: make([]cloudx.Stat, 0, len(objects)), NextToken: next}
	for _, attrs := range objects {
		page.Keys = append(page.Keys, toStat(s.loc.Strip(attrs.Name), attrs))
	}

	s.logger.Debug("Objects listed successfully",
		zap.Int("count", len(page.Keys)),
		zap.Bool("truncated", page.NextToken != ""))
	return page, nil
}

// Delete removes a single object
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(s.loc.Join(key)).Delete(ctx); err != nil {
		return MapGCSError(err, "delete", key)
	}
	return nil
}

func toStat(key string, attrs *storage.ObjectAttrs) cloudx.Stat {
	if attrs == nil {
		return cloudx.Stat{Key: key}
	}
	return cloudx.Stat{
		Key:          key,
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
	}
}
