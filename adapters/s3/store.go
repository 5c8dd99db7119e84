package s3

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
)

// Store implements cloudx.ObjectStore on an S3 bucket
type Store struct {
	client *s3.Client
	loc    cloudx.Location
	logger *zap.Logger
	budget *budget.Budget
}

var _ cloudx.ObjectStore = (*Store)(nil)

func newStore(client *s3.Client, loc cloudx.Location, logger *zap.Logger, b *budget.Budget) *Store {
	return &Store{client: client, loc: loc, logger: logger, budget: b}
}

// Provider implements cloudx.ObjectStore
func (s *Store) Provider() cloudx.Provider { return cloudx.ProviderS3 }

// Client returns the underlying SDK client
func (s *Store) Client() *s3.Client { return s.client }

// Region returns the region the client signs requests for
func (s *Store) Region() string { return s.client.Options().Region }

// Location returns the bucket and prefix the store is rooted at
func (s *Store) Location() cloudx.Location { return s.loc }

// Get retrieves an object as a streaming reader with metadata. The download
// holds one budget unit until the reader is closed.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	storageKey := s.loc.Join(key)
	s.logger.Debug("Getting object", zap.String("key", key), zap.String("storage_key", storageKey))

	if err := s.budget.Acquire(ctx, 1); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		s.budget.Release(1)
		return nil, cloudx.Stat{}, MapS3Error(err, "get", key)
	}

	return s.budget.ReleaseOnClose(output.Body, 1), stat(key, output.ContentLength, output.ETag, output.ContentType, output.LastModified), nil
}

// Put stores an object from an io.Reader
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts *cloudx.PutOptions) (cloudx.Stat, error) {
	if opts == nil {
		opts = &cloudx.PutOptions{}
	}
	storageKey := s.loc.Join(key)

	// The SDK needs a seekable body to sign and retry uploads
	body, size, err := cloudx.Buffer(r)
	if err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(storageKey),
		Body:   body,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if err := s.budget.Acquire(ctx, 1); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}
	output, err := s.client.PutObject(ctx, input)
	s.budget.Release(1)
	if err != nil {
		return cloudx.Stat{}, MapS3Error(err, "put", key)
	}

	st := cloudx.Stat{
		Key:          key,
		Size:         size,
		ETag:         aws.ToString(output.ETag),
		ContentType:  opts.ContentType,
		LastModified: time.Now(), // PutObject does not return it
	}

	s.logger.Debug("Object put successfully",
		zap.String("key", key),
		zap.Int64("size", st.Size),
		zap.String("etag", st.ETag))

	return st, nil
}

// Head retrieves object metadata without the payload
func (s *Store) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(s.loc.Join(key)),
	})
	if err != nil {
		return cloudx.Stat{}, MapS3Error(err, "head", key)
	}
	return stat(key, output.ContentLength, output.ETag, output.ContentType, output.LastModified), nil
}

// List retrieves one page of objects below the store prefix
func (s *Store) List(ctx context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.loc.Bucket),
		MaxKeys: aws.Int32(1000),
	}
	if prefix := s.loc.Join(opts.Prefix); prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if opts.PageSize > 0 {
		input.MaxKeys = aws.Int32(opts.PageSize)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	output, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return cloudx.ListPage{}, MapS3Error(err, "list", opts.Prefix)
	}

	page := cloudx.ListPage{Keys: make([]cloudx.Stat, 0, len(output.Contents))}
	if aws.ToBool(output.IsTruncated) {
		page.NextToken = aws.ToString(output.NextContinuationToken)
	}
	for _, obj := range output.Contents {
		if obj.Key == nil {
			continue
		}
		page.Keys = append(page.Keys, stat(s.loc.Strip(aws.ToString(obj.Key)), obj.Size, obj.ETag, nil, obj.LastModified))
	}

	s.logger.Debug("Objects listed successfully",
		zap.Int("count", len(page.Keys)),
		zap.Bool("truncated", page.NextToken != ""))

	return page, nil
}

// Delete removes a single object
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(s.loc.Join(key)),
	})
	if err != nil {
		return MapS3Error(err, "delete", key)
	}
	s.logger.Debug("Object deleted successfully", zap.String("key", key))
	return nil
}

func stat(key string, size *int64, etag, contentType *string, modified *time.Time) cloudx.Stat {
	st := cloudx.Stat{
		Key:         key,
		Size:        aws.ToInt64(size),
		ETag:        aws.ToString(etag),
		ContentType: aws.ToString(contentType),
	}
	if modified != nil {
		st.LastModified = *modified
	}
	return st
}
