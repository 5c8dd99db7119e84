package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
)

// MetadataHeaderPrefix prefixes user metadata sent with Put
const MetadataHeaderPrefix = "X-Meta-"

// Store implements cloudx.ObjectStore over an HTTP server. Objects are
// addressed as <url>/<key>; Put and Delete need a server that accepts
// PUT and DELETE (e.g. WebDAV). Listing is not supported.
type Store struct {
	client *retryablehttp.Client
	loc    cloudx.Location
	logger *zap.Logger
	budget *budget.Budget
}

var _ cloudx.ObjectStore = (*Store)(nil)

func newStore(client *retryablehttp.Client, loc cloudx.Location, logger *zap.Logger, b *budget.Budget) *Store {
	return &Store{client: client, loc: loc, logger: logger, budget: b}
}

// Provider implements cloudx.ObjectStore
func (s *Store) Provider() cloudx.Provider { return cloudx.ProviderHTTP }

// Client returns the underlying retrying client
func (s *Store) Client() *retryablehttp.Client { return s.client }

// Location returns the base URL the store is rooted at
func (s *Store) Location() cloudx.Location { return s.loc }

func (s *Store) objectURL(key string) string {
	u := *s.loc.URL
	u.Path = "/" + s.loc.Join(key)
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func (s *Store) do(ctx context.Context, method, op, key string, body any, header http.Header) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, s.objectURL(key), body)
	if err != nil {
		return nil, &cloudx.ObjectError{Op: op, Key: key, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, mapError(err, op, key)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, statusError(resp, op, key)
	}
	return resp, nil
}

// Get retrieves an object as a streaming reader. The download holds one
// budget unit until the reader is closed.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	if err := s.budget.Acquire(ctx, 1); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}
	resp, err := s.do(ctx, http.MethodGet, "get", key, nil, nil)
	if err != nil {
		s.budget.Release(1)
		return nil, cloudx.Stat{}, err
	}
	return s.budget.ReleaseOnClose(resp.Body, 1), stat(key, resp), nil
}

// Put uploads an object with a single PUT request
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts *cloudx.PutOptions) (cloudx.Stat, error) {
	if opts == nil {
		opts = &cloudx.PutOptions{}
	}

	// retries need to replay the body
	body, size, err := cloudx.Buffer(r)
	if err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}

	header := http.Header{}
	if opts.ContentType != "" {
		header.Set("Content-Type", opts.ContentType)
	}
	for k, v := range opts.Metadata {
		header.Set(MetadataHeaderPrefix+k, v)
	}

	if err := s.budget.Acquire(ctx, 1); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}
	resp, err := s.do(ctx, http.MethodPut, "put", key, body, header)
	if err != nil {
		s.budget.Release(1)
		return cloudx.Stat{}, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	s.budget.Release(1)

	st := cloudx.Stat{
		Key:          key,
		Size:         size,
		ETag:         resp.Header.Get("ETag"),
		ContentType:  opts.ContentType,
		LastModified: time.Now(),
	}
	s.logger.Debug("Object put successfully", zap.String("key", key), zap.Int64("size", size))
	return st, nil
}

// Head retrieves object metadata
func (s *Store) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	resp, err := s.do(ctx, http.MethodHead, "head", key, nil, nil)
	if err != nil {
		return cloudx.Stat{}, err
	}
	resp.Body.Close()
	return stat(key, resp), nil
}

// List is not supported over plain HTTP
func (s *Store) List(_ context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	return cloudx.ListPage{}, &cloudx.ObjectError{
		Op:  "list",
		Key: opts.Prefix,
		Err: fmt.Errorf("%w: http servers cannot list objects", cloudx.ErrNotSupported),
	}
}

// Delete removes a single object
func (s *Store) Delete(ctx context.Context, key string) error {
	resp, err := s.do(ctx, http.MethodDelete, "delete", key, nil, nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func stat(key string, resp *http.Response) cloudx.Stat {
	st := cloudx.Stat{
		Key:         key,
		Size:        resp.ContentLength,
		ETag:        resp.Header.Get("ETag"),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if st.Size < 0 {
		st.Size = 0
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		st.LastModified = lm
	}
	return st
}

func statusError(resp *http.Response, op, key string) error {
	mapped := cloudx.ErrorForStatus(resp.StatusCode)
	if mapped == nil {
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %s", mapped, resp.Status)}
}

func mapError(err error, op, key string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %w", cloudx.ErrUnavailable, err)}
	}
	return &cloudx.ObjectError{Op: op, Key: key, Err: err}
}
