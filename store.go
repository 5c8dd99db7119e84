package cloudx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// PutOptions configures object writes
type PutOptions struct {
	// ContentType specifies the MIME type of the object
	ContentType string

	// Metadata contains user-defined key-value pairs
	Metadata map[string]string
}

// Stat contains object metadata
type Stat struct {
	// Key is the object identifier relative to the store root
	Key string

	// Size is the object size in bytes
	Size int64

	// ETag is the entity tag (if the provider reports one)
	ETag string

	// ContentType is the MIME type
	ContentType string

	// LastModified is when the object was last modified
	LastModified time.Time
}

// ListOptions configures object listing
type ListOptions struct {
	// Prefix filters objects by key prefix
	Prefix string

	// PageSize limits the number of objects per page (provider default when zero)
	PageSize int32

	// ContinuationToken continues from a previous listing
	ContinuationToken string
}

// ListPage contains a page of listing results
type ListPage struct {
	// Keys contains object metadata for this page
	Keys []Stat

	// NextToken can be used to continue listing (empty if done)
	NextToken string
}

// ObjectStore is the client handle produced by a Builder. Keys are relative
// to the bucket/container and prefix the store was built for.
type ObjectStore interface {
	// Provider reports which backend serves this store
	Provider() Provider

	// Get retrieves an object as a streaming reader
	Get(ctx context.Context, key string) (io.ReadCloser, Stat, error)

	// Put stores an object from an io.Reader
	Put(ctx context.Context, key string, r io.Reader, opts *PutOptions) (Stat, error)

	// Head retrieves object metadata without the payload
	Head(ctx context.Context, key string) (Stat, error)

	// List retrieves one page of objects
	List(ctx context.Context, opts ListOptions) (ListPage, error)

	// Delete removes a single object
	Delete(ctx context.Context, key string) error
}

// Buffer returns r as a seekable reader and the number of bytes left in it.
// Readers that can already seek are used in place; others are read fully.
func Buffer(r io.Reader) (io.ReadSeeker, int64, error) {
	if r == nil {
		return bytes.NewReader(nil), 0, nil
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		cur, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := rs.Seek(0, io.SeekEnd)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to size data: %w", err)
			}
			if _, err := rs.Seek(cur, io.SeekStart); err != nil {
				return nil, 0, fmt.Errorf("failed to rewind data: %w", err)
			}
			return rs, end - cur, nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read data: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
