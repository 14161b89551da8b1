package shim

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCredentialStore(t *testing.T) {
	t.Parallel()

	t.Run("latest wins", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryCredentialStore()
		old := &AccessCredential{ID: uuid.New(), UserID: "u", ShimKey: "acme", AccessToken: "old", CreatedAt: time.Now().Add(-time.Hour)}
		fresh := &AccessCredential{ID: uuid.New(), UserID: "u", ShimKey: "acme", AccessToken: "fresh", CreatedAt: time.Now()}
		require.NoError(t, store.Save(context.Background(), old))
		require.NoError(t, store.Save(context.Background(), fresh))

		got, err := store.FindLatest(context.Background(), "u", "acme")
		require.NoError(t, err)
		assert.Equal(t, "fresh", got.AccessToken)

		all, err := store.FindAll(context.Background(), "u", "acme")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "fresh", all[0].AccessToken)
	})

	t.Run("scoped to the user and shim pair", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryCredentialStore()
		require.NoError(t, store.Save(context.Background(), &AccessCredential{ID: uuid.New(), UserID: "u", ShimKey: "acme", CreatedAt: time.Now()}))

		_, err := store.FindLatest(context.Background(), "u", "other")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
		_, err = store.FindLatest(context.Background(), "someone-else", "acme")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})

	t.Run("delete removes exactly one credential", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryCredentialStore()
		a := &AccessCredential{ID: uuid.New(), UserID: "u", ShimKey: "acme", CreatedAt: time.Now().Add(-time.Minute)}
		b := &AccessCredential{ID: uuid.New(), UserID: "u", ShimKey: "acme", CreatedAt: time.Now()}
		require.NoError(t, store.Save(context.Background(), a))
		require.NoError(t, store.Save(context.Background(), b))

		require.NoError(t, store.Delete(context.Background(), a))

		all, err := store.FindAll(context.Background(), "u", "acme")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, b.ID, all[0].ID)

		assert.ErrorIs(t, store.Delete(context.Background(), a), ErrCredentialNotFound)
	})
}

func TestMemoryPendingAuthorizationStore(t *testing.T) {
	t.Parallel()

	t.Run("save then find then delete", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingAuthorizationStore(0)
		pending := pendingFor("acme", "u")
		require.NoError(t, store.Save(context.Background(), pending))

		got, err := store.FindByStateToken(context.Background(), pending.StateToken)
		require.NoError(t, err)
		assert.Equal(t, pending, got)

		require.NoError(t, store.Delete(context.Background(), pending))
		_, err = store.FindByStateToken(context.Background(), pending.StateToken)
		assert.ErrorIs(t, err, ErrNoPendingAuthorization)
	})

	t.Run("deleting an already-consumed record reports the miss", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingAuthorizationStore(0)
		pending := pendingFor("acme", "u")
		require.NoError(t, store.Save(context.Background(), pending))

		require.NoError(t, store.Delete(context.Background(), pending))
		assert.ErrorIs(t, store.Delete(context.Background(), pending), ErrNoPendingAuthorization)
	})

	t.Run("rejects a duplicate state token", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingAuthorizationStore(0)
		pending := pendingFor("acme", "u")
		require.NoError(t, store.Save(context.Background(), pending))

		dup := pendingFor("acme", "someone-else")
		dup.StateToken = pending.StateToken
		assert.ErrorIs(t, store.Save(context.Background(), dup), ErrStateConflict)
	})

	t.Run("expired records are invisible and replaceable", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingAuthorizationStore(10 * time.Minute)
		pending := pendingFor("acme", "u")
		require.NoError(t, store.Save(context.Background(), pending))

		store.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

		_, err := store.FindByStateToken(context.Background(), pending.StateToken)
		assert.ErrorIs(t, err, ErrNoPendingAuthorization)

		replacement := pendingFor("acme", "u")
		replacement.StateToken = pending.StateToken
		replacement.CreatedAt = store.now()
		assert.NoError(t, store.Save(context.Background(), replacement))
	})
}
