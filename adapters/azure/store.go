package azure

import (
	"context"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
)

// Store implements cloudx.ObjectStore on an Azure Blob container
type Store struct {
	client *container.Client
	loc    cloudx.Location
	logger *zap.Logger
	budget *budget.Budget
}

var _ cloudx.ObjectStore = (*Store)(nil)

func newStore(client *container.Client, loc cloudx.Location, logger *zap.Logger, b *budget.Budget) *Store {
	return &Store{client: client, loc: loc, logger: logger, budget: b}
}

// Provider implements cloudx.ObjectStore
func (s *Store) Provider() cloudx.Provider { return cloudx.ProviderAzure }

// Client returns the underlying container client
func (s *Store) Client() *container.Client { return s.client }

// Location returns the container and prefix the store is rooted at
func (s *Store) Location() cloudx.Location { return s.loc }

// Get retrieves a blob as a streaming reader with metadata. The download
// holds one budget unit until the reader is closed.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	if err := s.budget.Acquire(ctx, 1); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}
	resp, err := s.client.NewBlobClient(s.loc.Join(key)).DownloadStream(ctx, nil)
	if err != nil {
		s.budget.Release(1)
		return nil, cloudx.Stat{}, MapAzureError(err, "get", key)
	}
	return s.budget.ReleaseOnClose(resp.Body, 1), stat(key, resp.ContentLength, resp.ETag, resp.ContentType, resp.LastModified), nil
}

// Put uploads a blob in a single request
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts *cloudx.PutOptions) (cloudx.Stat, error) {
	if opts == nil {
		opts = &cloudx.PutOptions{}
	}

	body, size, err := cloudx.Buffer(r)
	if err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}

	upload := &blockblob.UploadOptions{}
	if opts.ContentType != "" {
		upload.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(opts.ContentType)}
	}
	if len(opts.Metadata) > 0 {
		upload.Metadata = make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			upload.Metadata[k] = to.Ptr(v)
		}
	}

	if err := s.budget.Acquire(ctx, 1); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}
	resp, err := s.client.NewBlockBlobClient(s.loc.Join(key)).Upload(ctx, streaming.NopCloser(body), upload)
	s.budget.Release(1)
	if err != nil {
		return cloudx.Stat{}, MapAzureError(err, "put", key)
	}

	st := stat(key, &size, resp.ETag, nil, resp.LastModified)
	st.ContentType = opts.ContentType

	s.logger.Debug("Blob uploaded",
		zap.String("key", key),
		zap.Int64("size", st.Size),
		zap.String("etag", st.ETag))

	return st, nil
}

// Head retrieves blob properties
func (s *Store) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	resp, err := s.client.NewBlobClient(s.loc.Join(key)).GetProperties(ctx, nil)
	if err != nil {
		return cloudx.Stat{}, MapAzureError(err, "head", key)
	}
	return stat(key, resp.ContentLength, resp.ETag, resp.ContentType, resp.LastModified), nil
}

// List retrieves one page of blobs below the store prefix
func (s *Store) List(ctx context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	listOpts := &container.ListBlobsFlatOptions{}
	if prefix := s.loc.Join(opts.Prefix); prefix != "" {
		listOpts.Prefix = to.Ptr(prefix)
	}
	if opts.PageSize > 0 {
		listOpts.MaxResults = to.Ptr(opts.PageSize)
	}
	if opts.ContinuationToken != "" {
		listOpts.Marker = to.Ptr(opts.ContinuationToken)
	}

	resp, err := s.client.NewListBlobsFlatPager(listOpts).NextPage(ctx)
	if err != nil {
		return cloudx.ListPage{}, MapAzureError(err, "list", opts.Prefix)
	}

	page := cloudx.ListPage{}
	if resp.NextMarker != nil {
		page.NextToken = *resp.NextMarker
	}
	if resp.Segment == nil {
		return page, nil
	}

	page.Keys = make([]cloudx.Stat, 0, len(resp.Segment.BlobItems))
	for _, item := range resp.Segment.BlobItems {
		if item == nil || item.Name == nil {
			continue
		}
		key := s.loc.Strip(*item.Name)
		if p := item.Properties; p != nil {
			page.Keys = append(page.Keys, stat(key, p.ContentLength, p.ETag, p.ContentType, p.LastModified))
		} else {
			page.Keys = append(page.Keys, cloudx.Stat{Key: key})
		}
	}

	s.logger.Debug("Blobs listed",
		zap.Int("count", len(page.Keys)),
		zap.Bool("truncated", page.NextToken != ""))

	return page, nil
}

// Delete removes a single blob
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.NewBlobClient(s.loc.Join(key)).Delete(ctx, nil); err != nil {
		return MapAzureError(err, "delete", key)
	}
	return nil
}

func stat(key string, size *int64, etag *azcore.ETag, contentType *string, modified *time.Time) cloudx.Stat {
	st := cloudx.Stat{Key: key}
	if size != nil {
		st.Size = *size
	}
	if etag != nil {
		st.ETag = string(*etag)
	}
	if contentType != nil {
		st.ContentType = *contentType
	}
	if modified != nil {
		st.LastModified = *modified
	}
	return st
}
