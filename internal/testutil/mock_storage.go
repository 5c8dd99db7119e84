package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gostratum/cloudx"
)

// MockStore is a thread-safe in-memory cloudx.ObjectStore for testing
type MockStore struct {
	provider cloudx.Provider

	mu      sync.RWMutex
	objects map[string]*mockObject // key -> object
}

type mockObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
	etag         string
}

var _ cloudx.ObjectStore = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store reporting provider p
func NewMockStore(p cloudx.Provider) *MockStore {
	return &MockStore{
		provider: p,
		objects:  make(map[string]*mockObject),
	}
}

// Provider implements cloudx.ObjectStore
func (m *MockStore) Provider() cloudx.Provider { return m.provider }

// Put stores an object from an io.Reader
func (m *MockStore) Put(ctx context.Context, key string, r io.Reader, opts *cloudx.PutOptions) (cloudx.Stat, error) {
	if opts == nil {
		opts = &cloudx.PutOptions{}
	}
	if err := ctx.Err(); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "put", Key: key, Err: err}
	}

	obj := &mockObject{
		data:         data,
		contentType:  opts.ContentType,
		lastModified: time.Now(),
		etag:         etag(data),
	}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return obj.stat(key), nil
}

// Get retrieves an object as a streaming reader
func (m *MockStore) Get(ctx context.Context, key string) (io.ReadCloser, cloudx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: err}
	}

	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, cloudx.Stat{}, &cloudx.ObjectError{Op: "get", Key: key, Err: cloudx.ErrNotFound}
	}

	return io.NopCloser(bytes.NewReader(obj.data)), obj.stat(key), nil
}

// Head retrieves object metadata
func (m *MockStore) Head(ctx context.Context, key string) (cloudx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "head", Key: key, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return cloudx.Stat{}, &cloudx.ObjectError{Op: "head", Key: key, Err: cloudx.ErrNotFound}
	}
	return obj.stat(key), nil
}

// List returns keys in lexical order. The continuation token is the last key
// of the previous page.
func (m *MockStore) List(ctx context.Context, opts cloudx.ListOptions) (cloudx.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return cloudx.ListPage{}, &cloudx.ObjectError{Op: "list", Key: opts.Prefix, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.ContinuationToken {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var page cloudx.ListPage
	if opts.PageSize > 0 && len(keys) > int(opts.PageSize) {
		keys = keys[:opts.PageSize]
		page.NextToken = keys[len(keys)-1]
	}
	for _, k := range keys {
		page.Keys = append(page.Keys, m.objects[k].stat(k))
	}
	return page, nil
}

// Delete removes an object; missing objects are not an error
func (m *MockStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &cloudx.ObjectError{Op: "delete", Key: key, Err: err}
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored objects
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (o *mockObject) stat(key string) cloudx.Stat {
	return cloudx.Stat{
		Key:          key,
		Size:         int64(len(o.data)),
		ETag:         o.etag,
		ContentType:  o.contentType,
		LastModified: o.lastModified,
	}
}

func etag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// BuildCall records one MockBuilder.Build invocation
type BuildCall struct {
	URL     string
	Options cloudx.CloudOptions
}

// MockBuilder is a cloudx.Builder that hands out one MockStore per URL and
// records the options it was called with
type MockBuilder struct {
	provider cloudx.Provider

	// Err, when set, is returned by every Build call
	Err error

	mu     sync.Mutex
	calls  []BuildCall
	stores map[string]*MockStore
}

var _ cloudx.Builder = (*MockBuilder)(nil)

// NewMockBuilder creates a builder serving provider p
func NewMockBuilder(p cloudx.Provider) *MockBuilder {
	return &MockBuilder{provider: p, stores: make(map[string]*MockStore)}
}

// Provider implements cloudx.Builder
func (b *MockBuilder) Provider() cloudx.Provider { return b.provider }

// Build implements cloudx.Builder. Repeated builds of one URL share a store.
func (b *MockBuilder) Build(ctx context.Context, rawURL string, opts cloudx.CloudOptions) (cloudx.ObjectStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, BuildCall{URL: rawURL, Options: opts})
	if b.Err != nil {
		return nil, b.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, ok := b.stores[rawURL]
	if !ok {
		s = NewMockStore(b.provider)
		b.stores[rawURL] = s
	}
	return s, nil
}

// Calls returns a copy of the recorded builds
func (b *MockBuilder) Calls() []BuildCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BuildCall(nil), b.calls...)
}
