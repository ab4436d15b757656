package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

func newRedisStore(t *testing.T, ttl time.Duration) (enrollment.SessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func stores(t *testing.T) map[string]enrollment.SessionStore {
	redisStore, _ := newRedisStore(t, time.Hour)
	return map[string]enrollment.SessionStore{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			w := enrollment.NewWizard(time.Now(), false)
			first := "John"
			require.NoError(t, w.Apply(enrollment.FormPatch{FirstName: &first}))
			w.Next() // step 0 is not valid yet: no-op

			_, err := store.Load(ctx, w.ID)
			assert.Equal(t, enrollment.ErrNotFound, err)

			require.NoError(t, store.Save(ctx, w.Snapshot()))
			snap, err := store.Load(ctx, w.ID)
			require.NoError(t, err)
			assert.Equal(t, w.ID, snap.ID)
			assert.Equal(t, "John", snap.Data.FirstName)
			assert.Equal(t, w.Snapshot().State, snap.State)
			assert.Len(t, snap.Data.Addresses, 1)

			require.NoError(t, store.Delete(ctx, w.ID))
			_, err = store.Load(ctx, w.ID)
			assert.Equal(t, enrollment.ErrNotFound, err)
		})
	}
}

func TestStore_LoadedSnapshotsAreIndependent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			w := enrollment.NewWizard(time.Now(), false)
			require.NoError(t, store.Save(ctx, w.Snapshot()))

			a, err := store.Load(ctx, w.ID)
			require.NoError(t, err)
			a.Data.Addresses[0].Street = "changed"

			b, err := store.Load(ctx, w.ID)
			require.NoError(t, err)
			assert.Empty(t, b.Data.Addresses[0].Street)
		})
	}
}

func TestStore_Lock(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			unlock, err := store.Lock(ctx, "wiz", time.Minute)
			require.NoError(t, err)

			_, err = store.Lock(ctx, "wiz", time.Minute)
			assert.Equal(t, enrollment.ErrLocked, err)

			// other wizards are not affected
			unlockOther, err := store.Lock(ctx, "other", time.Minute)
			require.NoError(t, err)
			unlockOther()

			unlock()
			unlock() // idempotent

			unlock, err = store.Lock(ctx, "wiz", time.Minute)
			require.NoError(t, err)
			unlock()
		})
	}
}

func TestStore_LockIsExclusive(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg       sync.WaitGroup
				acquired int32
				start    = make(chan struct{})
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if _, err := store.Lock(context.Background(), "wiz", time.Minute); err == nil {
						atomic.AddInt32(&acquired, 1)
					}
				}()
			}
			close(start)
			wg.Wait()
			assert.Equal(t, int32(1), acquired)
		})
	}
}

func TestMemoryStore_LockExpires(t *testing.T) {
	now := time.Now()
	store := &memoryStore{
		sessions: make(map[string][]byte),
		updated:  make(map[string]time.Time),
		locks:    make(map[string]memLock),
		now:      func() time.Time { return now },
	}
	ctx := context.Background()

	unlockFirst, err := store.Lock(ctx, "wiz", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	unlockSecond, err := store.Lock(ctx, "wiz", time.Second)
	require.NoError(t, err, "the first lock expired")

	// the expired holder must not release the new lock
	unlockFirst()
	_, err = store.Lock(ctx, "wiz", time.Second)
	assert.Equal(t, enrollment.ErrLocked, err)
	unlockSecond()
}

func TestRedisStore_LockExpires(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	unlockFirst, err := store.Lock(ctx, "wiz", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	unlockSecond, err := store.Lock(ctx, "wiz", time.Second)
	require.NoError(t, err)

	unlockFirst()
	_, err = store.Lock(ctx, "wiz", time.Second)
	assert.Equal(t, enrollment.ErrLocked, err)
	unlockSecond()
}

func TestRedisStore_WizardsExpire(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	w := enrollment.NewWizard(time.Now(), false)
	require.NoError(t, store.Save(ctx, w.Snapshot()))

	mr.FastForward(59 * time.Minute)
	_, err := store.Load(ctx, w.ID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, w.ID)
	assert.Equal(t, enrollment.ErrNotFound, err)
}

func TestStore_Sweep(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			idle := enrollment.NewWizard(time.Now(), false)
			require.NoError(t, store.Save(ctx, idle.Snapshot()))

			n, err := store.Sweep(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			n, err = store.Sweep(ctx, time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, err = store.Load(ctx, idle.ID)
			assert.Equal(t, enrollment.ErrNotFound, err)
		})
	}
}
