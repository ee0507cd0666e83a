package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*Gateway, *LocalBackend, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir, "http://cdn.example.com")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return NewGateway(backend, logger, nil), backend, dir
}

func putTemp(t *testing.T, b *LocalBackend, name string) string {
	t.Helper()
	key := models.TemporaryPrefix + name
	require.NoError(t, b.Put(context.Background(), key, strings.NewReader("img")))
	return key
}

func age(t *testing.T, dir, key string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(key)), old, old))
}

func TestGateway_Upload(t *testing.T) {
	g, b, _ := newTestGateway(t)
	ctx := context.Background()

	asset, err := g.Upload(ctx, bytes.NewReader([]byte("jpeg bytes")), "jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.PublicID, models.TemporaryPrefix))
	assert.True(t, strings.HasSuffix(asset.PublicID, ".jpg"))
	assert.Equal(t, models.NamespaceTemporary, asset.Namespace)
	assert.Equal(t, "http://cdn.example.com/"+asset.PublicID, asset.URL)

	exists, err := b.Exists(ctx, asset.PublicID)
	require.NoError(t, err)
	assert.True(t, exists)

	other, err := g.Upload(ctx, bytes.NewReader([]byte("x")), ".png")
	require.NoError(t, err)
	assert.NotEqual(t, asset.PublicID, other.PublicID)
}

func TestGateway_Promote(t *testing.T) {
	ctx := context.Background()

	t.Run("moves temporary object keeping the base name", func(t *testing.T) {
		g, b, _ := newTestGateway(t)
		key := putTemp(t, b, "a.jpg")

		asset, err := g.Promote(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.PermanentPrefix+"a.jpg", asset.PublicID)
		assert.Equal(t, models.NamespacePermanent, asset.Namespace)

		tempExists, _ := b.Exists(ctx, key)
		permExists, _ := b.Exists(ctx, asset.PublicID)
		assert.False(t, tempExists)
		assert.True(t, permExists)
	})

	t.Run("is idempotent", func(t *testing.T) {
		g, b, _ := newTestGateway(t)
		key := putTemp(t, b, "b.jpg")

		first, err := g.Promote(ctx, key)
		require.NoError(t, err)
		second, err := g.Promote(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, first.PublicID, second.PublicID)

		third, err := g.Promote(ctx, first.PublicID)
		require.NoError(t, err)
		assert.Equal(t, first.PublicID, third.PublicID)
	})

	t.Run("missing object is not found", func(t *testing.T) {
		g, _, _ := newTestGateway(t)

		_, err := g.Promote(ctx, models.TemporaryPrefix+"missing.jpg")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))

		_, err = g.Promote(ctx, models.PermanentPrefix+"missing.jpg")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))

		_, err = g.Promote(ctx, "elsewhere/c.jpg")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("provider failure is a promotion error", func(t *testing.T) {
		_, b, _ := newTestGateway(t)
		logger, _ := test.NewNullLogger()
		g := NewGateway(&flakyBackend{Backend: b, renameErr: errors.New("connection reset")}, logger, nil)
		key := putTemp(t, b, "d.jpg")

		_, err := g.Promote(ctx, key)
		assert.True(t, apperror.Is(err, apperror.KindAssetPromotion))
	})
}

func TestGateway_Delete(t *testing.T) {
	g, b, _ := newTestGateway(t)
	ctx := context.Background()

	key := putTemp(t, b, "e.jpg")
	require.NoError(t, g.Delete(ctx, key))
	exists, _ := b.Exists(ctx, key)
	assert.False(t, exists)

	assert.NoError(t, g.Delete(ctx, key), "deleting twice must not fail")
	assert.NoError(t, g.Delete(ctx, models.PermanentPrefix+"never-existed.jpg"))
	assert.NoError(t, g.Delete(ctx, ""))
}

func TestGateway_SweepStaleTemporary(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes only objects older than max age", func(t *testing.T) {
		g, b, dir := newTestGateway(t)
		stale := putTemp(t, b, "stale.jpg")
		fresh := putTemp(t, b, "fresh.jpg")
		age(t, dir, stale, 25*time.Hour)
		age(t, dir, fresh, time.Hour)

		perm := models.PermanentPrefix + "kept.jpg"
		require.NoError(t, b.Put(ctx, perm, strings.NewReader("img")))
		age(t, dir, perm, 72*time.Hour)

		result, err := g.SweepStaleTemporary(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Scanned)
		assert.Equal(t, 1, result.Deleted)
		assert.Equal(t, 0, result.Failed)

		staleExists, _ := b.Exists(ctx, stale)
		freshExists, _ := b.Exists(ctx, fresh)
		permExists, _ := b.Exists(ctx, perm)
		assert.False(t, staleExists)
		assert.True(t, freshExists)
		assert.True(t, permExists)
	})

	t.Run("single failures do not abort the sweep", func(t *testing.T) {
		_, b, dir := newTestGateway(t)
		first := putTemp(t, b, "one.jpg")
		second := putTemp(t, b, "two.jpg")
		age(t, dir, first, 48*time.Hour)
		age(t, dir, second, 48*time.Hour)

		logger, hook := test.NewNullLogger()
		g := NewGateway(&flakyBackend{Backend: b, deleteErrFor: first}, logger, nil)

		result, err := g.SweepStaleTemporary(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Deleted)
		assert.Equal(t, 1, result.Failed)
		var logged bool
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel {
				logged = true
			}
		}
		assert.True(t, logged, "failed deletion must be logged")

		secondExists, _ := b.Exists(ctx, second)
		assert.False(t, secondExists)
	})

	t.Run("empty namespace", func(t *testing.T) {
		g, _, _ := newTestGateway(t)
		result, err := g.SweepStaleTemporary(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Zero(t, result.Scanned)
	})
}

// flakyBackend injects provider failures into a working backend.
type flakyBackend struct {
	Backend
	renameErr    error
	deleteErrFor string
}

func (f *flakyBackend) Rename(ctx context.Context, from, to string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	return f.Backend.Rename(ctx, from, to)
}

func (f *flakyBackend) Delete(ctx context.Context, key string) error {
	if key == f.deleteErrFor {
		return errors.New("permission denied")
	}
	return f.Backend.Delete(ctx, key)
}
