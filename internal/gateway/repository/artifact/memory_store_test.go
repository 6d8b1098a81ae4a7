package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "demo", "index.html")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "demo", "index.html", []byte("<html>")))
	require.NoError(t, s.Put(ctx, "demo", "app.js", []byte("js")))
	require.NoError(t, s.Put(ctx, "other", "index.html", []byte("x")))

	got, err := s.Get(ctx, "demo", "index.html")
	require.NoError(t, err)
	require.Equal(t, []byte("<html>"), got)

	paths, err := s.List(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, []string{"app.js", "index.html"}, paths)

	url, err := s.GetURL(ctx, "demo", "index.html")
	require.NoError(t, err)
	require.Empty(t, url)
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "demo", "app.json", []byte("v1")))
	require.NoError(t, s.Put(ctx, "demo", "app.json", []byte("v2")))

	got, err := s.Get(ctx, "demo", "app.json")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func TestMemoryStoreValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.Error(t, s.Put(ctx, "", "p", nil))
	require.Error(t, s.Put(ctx, "a", "", nil))
	_, err := s.List(ctx, " ")
	require.Error(t, err)
}

func TestObjectKeyNormalizesPath(t *testing.T) {
	require.Equal(t, "demo/index.html", objectKey(" demo", "/index.html"))
	require.Equal(t, "demo/a/b", objectKey("demo", "a/b"))
}
