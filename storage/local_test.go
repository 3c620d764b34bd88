package storage

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "http://localhost:8080/files", "test-secret")
	require.NoError(t, err)
	return l
}

func TestLocalPutGetExistsDelete(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	require.NoError(t, l.Put(ctx, "docs/readme.txt", []byte("hello")))

	exists, err := l.Exists(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	contents, err := l.Get(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), contents)

	size, err := l.Size(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	require.NoError(t, l.Delete(ctx, "docs/readme.txt"))
	exists, err = l.Exists(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an already-gone path is not an error.
	require.NoError(t, l.Delete(ctx, "docs/readme.txt"))
}

func TestLocalPutFileAs(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	path, err := l.PutFileAs(ctx, "images/png", "cat.png", strings.NewReader("pngbytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/png/cat.png", path)

	contents, err := l.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("pngbytes"), contents)
}

func TestLocalListing(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	require.NoError(t, l.Put(ctx, "a/one.txt", []byte("1")))
	require.NoError(t, l.Put(ctx, "a/b/two.txt", []byte("22")))
	require.NoError(t, l.Put(ctx, "three.txt", []byte("333")))

	all, err := l.Files(ctx, "", true)
	require.NoError(t, err)
	paths := make([]string, len(all))
	for i, o := range all {
		paths[i] = o.Path
	}
	assert.ElementsMatch(t, []string{"a/one.txt", "a/b/two.txt", "three.txt"}, paths)

	top, err := l.Files(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "three.txt", top[0].Path)
	assert.Equal(t, int64(3), top[0].Size)

	dirs, err := l.Directories(ctx, "", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "a/b"}, dirs)

	require.NoError(t, l.DeleteDirectory(ctx, "a"))
	all, err = l.Files(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestLocalURLs(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	assert.Equal(t, "http://localhost:8080/files/a/b.txt", l.URL("a/b.txt"))

	expiresAt := time.Now().Add(time.Hour)
	signed, err := l.TemporaryURL(ctx, "a/b.txt", expiresAt)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	signature := parsed.Query().Get("signature")

	assert.True(t, l.VerifyTemporaryURL("a/b.txt", expires, signature))
	assert.False(t, l.VerifyTemporaryURL("a/other.txt", expires, signature))
	assert.False(t, l.VerifyTemporaryURL("a/b.txt", time.Now().Add(-time.Minute).Unix(), signature))
}

func TestPrefixedBackend(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)
	pub := Prefixed(l, "public")

	require.NoError(t, pub.Put(ctx, "img/cat.txt", []byte("meow")))

	// The base backend sees the prefixed path.
	exists, err := l.Exists(ctx, "public/img/cat.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	// The prefixed handle lists relative paths.
	objs, err := pub.Files(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "img/cat.txt", objs[0].Path)

	assert.Equal(t, "http://localhost:8080/files/public/img/cat.txt", pub.URL("img/cat.txt"))
}

func TestReadOnlyBackend(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)
	require.NoError(t, l.Put(ctx, "a.txt", []byte("x")))

	ro := ReadOnly(l)

	assert.ErrorIs(t, ro.Put(ctx, "b.txt", []byte("y")), ErrReadOnly)
	_, err := ro.PutFileAs(ctx, "d", "b.txt", strings.NewReader("y"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, ro.Delete(ctx, "a.txt"), ErrReadOnly)
	assert.ErrorIs(t, ro.DeleteDirectory(ctx, "d"), ErrReadOnly)

	// Reads still pass through.
	contents, err := ro.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), contents)
}

func TestDiskFor(t *testing.T) {
	assert.Equal(t, Public, DiskFor(true, false))
	assert.Equal(t, PublicReadOnly, DiskFor(true, true))
	assert.Equal(t, Private, DiskFor(false, false))
	assert.Equal(t, PrivateReadOnly, DiskFor(false, true))
}

func TestDiskSetScoping(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)
	set := NewDiskSet(l, "public", "private")

	require.NoError(t, set.Disk(Public).Put(ctx, "a.txt", []byte("pub")))
	require.NoError(t, set.Disk(Private).Put(ctx, "a.txt", []byte("priv")))

	pub, err := l.Get(ctx, "public/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("pub"), pub)

	priv, err := l.Get(ctx, "private/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("priv"), priv)

	_, err = set.Disk(PrivateReadOnly).PutFileAs(ctx, "d", "x", strings.NewReader("y"))
	assert.ErrorIs(t, err, ErrReadOnly)
}
