package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := backend.Load(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Save(ctx, KeyToken, []byte("abc")))
	require.NoError(t, backend.Save(ctx, KeyProfile, []byte(`{"username":"alice"}`)))

	v, ok, err := backend.Load(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(v))

	require.NoError(t, backend.Delete(ctx, KeyToken))
	require.NoError(t, backend.Delete(ctx, KeyToken))

	_, ok, err = backend.Load(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = backend.Load(ctx, KeyProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"username":"alice"}`, string(v))
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir, "scope")
	exerciseBackend(t, backend)

	info, err := os.Stat(backend.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_RemovesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir, "scope")
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, KeyToken, []byte("abc")))
	require.NoError(t, backend.Delete(ctx, KeyToken))

	_, err := os.Stat(filepath.Join(dir, "scope.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileBackend_StorePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(ctx, NewFileBackend(dir, "scope"))
	require.NoError(t, err)
	require.NoError(t, store.Begin(ctx, "abc", sampleProfile()))

	again, err := Open(ctx, NewFileBackend(dir, "scope"))
	require.NoError(t, err)

	token, ok := again.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	p, ok := again.Profile()
	require.True(t, ok)
	assert.Equal(t, sampleProfile(), *p)
}

func TestFileBackend_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir, "scope")
	require.NoError(t, os.WriteFile(backend.Path(), []byte(`{"token":"abc","user":"{not json`), 0o600))
	ctx := context.Background()

	store, err := Open(ctx, backend)
	require.NoError(t, err)
	_, ok := store.Token()
	assert.False(t, ok)

	_, err = os.Stat(backend.Path() + ".corrupt")
	assert.NoError(t, err, "unreadable document is kept for inspection")

	require.NoError(t, store.Begin(ctx, "def", sampleProfile()))
	again, err := Open(ctx, NewFileBackend(dir, "scope"))
	require.NoError(t, err)
	token, ok := again.Token()
	assert.True(t, ok)
	assert.Equal(t, "def", token)
}

func TestSealedBackend(t *testing.T) {
	inner := NewMemoryBackend()
	sealed, err := NewSealedBackend(inner, "correct horse", "scope")
	require.NoError(t, err)
	exerciseBackend(t, sealed)

	ctx := context.Background()
	require.NoError(t, sealed.Save(ctx, KeyToken, []byte("abc")))

	raw, ok, err := inner.Load(ctx, KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "abc")
}

func TestSealedBackend_WrongPassphrase(t *testing.T) {
	inner := NewMemoryBackend()
	ctx := context.Background()

	sealed, err := NewSealedBackend(inner, "right", "scope")
	require.NoError(t, err)
	require.NoError(t, sealed.Save(ctx, KeyToken, []byte("abc")))

	other, err := NewSealedBackend(inner, "wrong", "scope")
	require.NoError(t, err)

	_, _, err = other.Load(ctx, KeyToken)
	assert.Error(t, err)
}

func TestSealedBackend_KeysAreBound(t *testing.T) {
	inner := NewMemoryBackend()
	ctx := context.Background()

	sealed, err := NewSealedBackend(inner, "pass", "scope")
	require.NoError(t, err)
	require.NoError(t, sealed.Save(ctx, KeyToken, []byte("abc")))

	raw, _, _ := inner.Load(ctx, KeyToken)
	require.NoError(t, inner.Save(ctx, KeyProfile, raw))

	_, _, err = sealed.Load(ctx, KeyProfile)
	assert.Error(t, err)
}

func TestSealedBackend_RequiresPassphrase(t *testing.T) {
	_, err := NewSealedBackend(NewMemoryBackend(), "", "scope")
	assert.Error(t, err)
}

func TestRedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	backend, err := NewRedisBackend(context.Background(), RedisConfig{Addr: mr.Addr()}, "scope")
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	exerciseBackend(t, backend)

	require.NoError(t, backend.Save(context.Background(), KeyToken, []byte("abc")))
	got, err := mr.Get("botctl:scope:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestRedisBackend_Unreachable(t *testing.T) {
	backend, err := NewRedisBackend(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}, "scope")
	assert.Nil(t, backend)
	assert.Error(t, err)
}

func TestScope(t *testing.T) {
	a := Scope("http://localhost:8000")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Scope("HTTP://localhost:8000/"))
	assert.NotEqual(t, a, Scope("https://api.example.com"))
}
