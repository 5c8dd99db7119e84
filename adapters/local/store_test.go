package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostratum/cloudx"
)

func newMemStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewBuilderWithFs(fs).Build(context.Background(), "file:///data/lake", cloudx.DefaultCloudOptions())
	require.NoError(t, err)
	return store.(*Store), fs
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)

	st, err := store.Put(ctx, "tables/a.csv", strings.NewReader("1,2,3"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)

	data, err := afero.ReadFile(fs, "/data/lake/tables/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", string(data))

	head, err := store.Head(ctx, "tables/a.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(5), head.Size)

	rc, _, err := store.Get(ctx, "tables/a.csv")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "1,2,3", string(got))

	require.NoError(t, store.Delete(ctx, "tables/a.csv"))
	_, err = store.Head(ctx, "tables/a.csv")
	assert.True(t, cloudx.IsNotFound(err))
}

func TestStore_PutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)

	_, err := store.Put(ctx, "x.bin", strings.NewReader("one"), nil)
	require.NoError(t, err)
	_, err = store.Put(ctx, "x.bin", strings.NewReader("two!"), nil)
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, "/data/lake")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.bin", entries[0].Name())

	data, err := afero.ReadFile(fs, "/data/lake/x.bin")
	require.NoError(t, err)
	assert.Equal(t, "two!", string(data))
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemStore(t)

	for _, k := range []string{"b/2.csv", "a/1.csv", "a/3.csv", "c.txt"} {
		_, err := store.Put(ctx, k, strings.NewReader(k), nil)
		require.NoError(t, err)
	}

	page, err := store.List(ctx, cloudx.ListOptions{Prefix: "a/"})
	require.NoError(t, err)
	require.Len(t, page.Keys, 2)
	assert.Equal(t, "a/1.csv", page.Keys[0].Key)
	assert.Equal(t, "a/3.csv", page.Keys[1].Key)
	assert.Empty(t, page.NextToken)

	page, err = store.List(ctx, cloudx.ListOptions{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Keys, 3)
	assert.Equal(t, "b/2.csv", page.NextToken)

	page, err = store.List(ctx, cloudx.ListOptions{PageSize: 3, ContinuationToken: page.NextToken})
	require.NoError(t, err)
	require.Len(t, page.Keys, 1)
	assert.Equal(t, "c.txt", page.Keys[0].Key)
	assert.Empty(t, page.NextToken)
}

func TestStore_ListMissingRoot(t *testing.T) {
	store, _ := newMemStore(t)
	page, err := store.List(context.Background(), cloudx.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Keys)
}

func TestStore_KeysStayBelowRoot(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)

	_, err := store.Put(ctx, "../../etc/passwd", strings.NewReader("x"), nil)
	require.NoError(t, err)
	exists, err := afero.Exists(fs, "/data/lake/etc/passwd")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.Put(ctx, "", strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, cloudx.ErrInvalidInput)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemStore(t)

	_, _, err := store.Get(ctx, "missing")
	assert.True(t, cloudx.IsNotFound(err))
	assert.True(t, cloudx.IsNotFound(store.Delete(ctx, "missing")))
}

func TestStore_CancelledContext(t *testing.T) {
	store, _ := newMemStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "a", strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild(t *testing.T) {
	store, err := NewBuilderWithFs(afero.NewMemMapFs()).Build(context.Background(), "/var/data", cloudx.DefaultCloudOptions())
	require.NoError(t, err)
	assert.Equal(t, "/var/data", store.(*Store).Root())

	_, err = NewBuilder().Build(context.Background(), "s3://bucket", cloudx.DefaultCloudOptions())
	assert.ErrorIs(t, err, cloudx.ErrInvalidInput)
}
